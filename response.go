package reggie

import (
	"context"

	"github.com/frankli0324/reggie/internal/extract"
)

// Text reads the whole body of resp, decoding it with the charset named by
// its Content-Type.
func Text(ctx context.Context, resp *Response[*Body]) (string, error) {
	return extract.ToTextCharset(ctx, resp.Body, resp.Header.Get("Content-Type"))
}

func Bytes(ctx context.Context, resp *Response[*Body]) ([]byte, error) {
	return extract.ToBytes(ctx, resp.Body)
}

func JSON[T any](ctx context.Context, resp *Response[*Body]) (T, error) {
	return extract.ToJSON[T](ctx, resp.Body)
}

// BytesStream yields the data chunks of resp as they arrive.
func BytesStream(resp *Response[*Body]) *extract.DataStream {
	return extract.ToStream(resp.Body)
}
