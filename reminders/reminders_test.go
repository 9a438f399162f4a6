package reminders

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	return NewBook(Config{Path: filepath.Join(t.TempDir(), "reminders.json")})
}

func TestListAllOnMissingFileIsEmpty(t *testing.T) {
	b := newTestBook(t)
	all, err := b.ListAll()
	assert.Nil(t, err)
	assert.Empty(t, all)
}

func TestAppendAndListAll(t *testing.T) {
	b := newTestBook(t)
	r := New("trx-1", time.Now().Add(time.Hour), "settle the invoice")

	assert.Nil(t, b.Append(r))
	assert.Nil(t, b.Append(New("trx-2", time.Now().Add(2*time.Hour), "ping receiver")))

	all, err := b.ListAll()
	assert.Nil(t, err)
	assert.Equal(t, 2, len(all))
	assert.Equal(t, r.ID, all[0].ID)
	assert.Equal(t, "settle the invoice", all[0].Message)
	assert.False(t, all[0].Sent)
}

func TestReplaceAllWritesBackSentFlags(t *testing.T) {
	b := newTestBook(t)
	assert.Nil(t, b.Append(New("trx-1", time.Now().Add(-time.Hour), "overdue")))

	all, err := b.ListAll()
	assert.Nil(t, err)
	all[0].Sent = true
	assert.Nil(t, b.ReplaceAll(all))

	again, err := b.ListAll()
	assert.Nil(t, err)
	assert.True(t, again[0].Sent)
}
