package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrStatusCodeMismatch  = fmt.Errorf("status code mismatch")
	ErrContentTypeMismatch = fmt.Errorf("content type mismatch")
	ErrBadRequestBody      = fmt.Errorf("cannot encode request body")
	ErrBadResponseBody     = fmt.Errorf("cannot decode response body")
)

// Headers carry additional request headers such as API keys.
type Headers map[string]string

// MakeGet performs a GET request and decodes the JSON response into out.
func MakeGet(timeout time.Duration, url string, headers Headers, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return err
	}

	return decodeJSONResponse(resp, out)
}

// MakePost performs a POST request with the JSON encoded in body and decodes
// the JSON response into out.
func MakePost(timeout time.Duration, url string, headers Headers, in, out any) error {
	return makeWithBody(fasthttp.MethodPost, timeout, url, headers, in, out)
}

// MakePatch performs a PATCH request with the JSON encoded in body and
// decodes the JSON response into out.
func MakePatch(timeout time.Duration, url string, headers Headers, in, out any) error {
	return makeWithBody(fasthttp.MethodPatch, timeout, url, headers, in, out)
}

// MakeMultipartPost performs a POST request with a single file part and
// optional extra form fields, decoding the JSON response into out.
func MakeMultipartPost(
	timeout time.Duration, url string, headers Headers,
	field, filename string, data []byte, fields map[string]string, out any,
) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return errors.Join(ErrBadRequestBody, err)
	}
	if _, err := part.Write(data); err != nil {
		return errors.Join(ErrBadRequestBody, err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return errors.Join(ErrBadRequestBody, err)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Join(ErrBadRequestBody, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.SetBody(body.Bytes())

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return err
	}

	return decodeJSONResponse(resp, out)
}

func makeWithBody(method string, timeout time.Duration, url string, headers Headers, in, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return errors.Join(ErrBadRequestBody, err)
	}
	req.SetBody(raw)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return err
	}

	return decodeJSONResponse(resp, out)
}

func decodeJSONResponse(resp *fasthttp.Response, out any) error {
	switch resp.StatusCode() {
	case fasthttp.StatusOK, fasthttp.StatusCreated, fasthttp.StatusAccepted:
	case fasthttp.StatusNoContent:
		return nil
	default:
		return errors.Join(
			ErrStatusCodeMismatch,
			fmt.Errorf("expected status code %d but got %d", fasthttp.StatusOK, resp.StatusCode()))
	}

	if out == nil {
		return nil
	}

	contentType := resp.Header.Peek("Content-Type")
	if !bytes.HasPrefix(contentType, []byte("application/json")) {
		return errors.Join(
			ErrContentTypeMismatch,
			fmt.Errorf("expected content type application/json but got %s", contentType))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Join(ErrBadResponseBody, err)
	}
	return nil
}
