package extract

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/frankli0324/reggie/internal/body"
	"github.com/frankli0324/reggie/internal/model"
)

// ToTextCharset drains b and decodes it using the charset parameter of
// contentType. Without a charset, or with utf-8, it behaves like [ToText].
func ToTextCharset(ctx context.Context, b body.Stream[[]byte], contentType string) (string, error) {
	name := charsetOf(contentType)
	if name == "" || name == "utf-8" || name == "utf8" {
		return ToText(ctx, b)
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", model.BodyErr(fmt.Errorf("unsupported charset %q: %w", name, err))
	}
	data, err := ToBytes(ctx, b)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", model.BodyErr(err)
	}
	return string(out), nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
