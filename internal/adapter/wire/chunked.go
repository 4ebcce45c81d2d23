package wire

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/textproto"

	"github.com/frankli0324/reggie/internal/body"
)

const maxFrameSize = 32 << 10

// chunkedStream decodes a chunked transfer coding into frames: one data
// frame per chunk, split at maxFrameSize, then the trailer section as a
// single metadata frame if the peer sent one.
type chunkedStream struct {
	r      *bufio.Reader
	closer io.Closer

	left int64 // bytes left in the current chunk, -1 before a chunk header
	err  error
}

func newChunkedStream(r *bufio.Reader, closer io.Closer) *chunkedStream {
	return &chunkedStream{r: r, closer: closer, left: -1}
}

func (c *chunkedStream) readChunkHeader() (n int64, err error) {
	line, isPrefix, err := c.r.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	if isPrefix {
		return 0, errors.New("http chunk header too long")
	}
	cnt := 0
	for _, b := range line {
		if b == ';' || b == ' ' || b == '\t' {
			break // chunk extensions are ignored
		}
		cnt++
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		if cnt >= 16 {
			return 0, errors.New("http chunk length too large")
		}
		n <<= 4
		n |= int64(b)
	}
	if cnt == 0 {
		return 0, errors.New("empty chunk length")
	}
	return n, nil
}

func (c *chunkedStream) ReadFrame(ctx context.Context) (body.Frame[[]byte], error) {
	if c.err != nil {
		return body.Frame[[]byte]{}, c.err
	}
	if err := ctx.Err(); err != nil {
		return body.Frame[[]byte]{}, err
	}
	// a blocked read is released by closing the connection
	stop := context.AfterFunc(ctx, func() { c.closer.Close() })
	f, err := c.next()
	if !stop() {
		err = ctx.Err()
	}
	if err != nil {
		c.err = err
		c.closer.Close()
	}
	return f, err
}

func (c *chunkedStream) next() (body.Frame[[]byte], error) {
	if c.left == -1 {
		n, err := c.readChunkHeader()
		if err != nil {
			return body.Frame[[]byte]{}, err
		}
		if n == 0 {
			return c.readTrailer()
		}
		c.left = n
	}
	size := c.left
	if size > maxFrameSize {
		size = maxFrameSize
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return body.Frame[[]byte]{}, err
	}
	c.left -= size
	if c.left == 0 {
		dr, _ := c.r.ReadByte()
		dn, err := c.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return body.Frame[[]byte]{}, err
		}
		if dr != '\r' || dn != '\n' {
			return body.Frame[[]byte]{}, errors.New("malformed chunked encoding")
		}
		c.left = -1
	}
	return body.DataFrame(buf), nil
}

func (c *chunkedStream) readTrailer() (body.Frame[[]byte], error) {
	trailer, err := textproto.NewReader(c.r).ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return body.Frame[[]byte]{}, err
	}
	if len(trailer) == 0 {
		return body.Frame[[]byte]{}, io.EOF
	}
	// the trailer frame is the last one
	c.err = io.EOF
	c.closer.Close()
	return body.TrailersFrame[[]byte](http.Header(trailer)), nil
}

func (c *chunkedStream) SizeHint() body.SizeHint { return body.SizeHint{} }

func (c *chunkedStream) IsEndStream() bool { return c.err == io.EOF }

func (c *chunkedStream) Close() error {
	if c.err == nil {
		c.err = io.EOF
		return c.closer.Close()
	}
	return nil
}
