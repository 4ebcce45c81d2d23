package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frankli0324/reggie"
)

type fetchFlags struct {
	Method  string
	Data    string
	Headers []string
	JSON    bool
	Stream  bool
	Include bool
}

func newFetchCmd(g *globalFlags) *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send one request and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVarP(&f.Method, "request", "X", "", "request method (default GET, POST with --data)")
	cmd.Flags().StringVarP(&f.Data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&f.Headers, "header", "H", nil, `extra header "Key: value", repeatable`)
	cmd.Flags().BoolVar(&f.JSON, "json", false, "decode the body as JSON and pretty print it")
	cmd.Flags().BoolVar(&f.Stream, "stream", false, "print chunks as they arrive")
	cmd.Flags().BoolVarP(&f.Include, "include", "i", false, "print the status line and headers")
	return cmd
}

func (g *globalFlags) client() (reggie.Client, func(), error) {
	log, err := g.logger()
	if err != nil {
		return reggie.Client{}, nil, err
	}
	done := func() { log.Sync() }
	opts := []reggie.Option{reggie.WithLogger(log)}
	if g.Wire {
		return reggie.NewClient(reggie.Wire(nil), opts...), done, nil
	}
	cfg := reggie.NetHTTPConfig{}
	if g.Config != "" {
		if cfg, err = reggie.LoadNetHTTPConfig(g.Config); err != nil {
			return reggie.Client{}, nil, err
		}
	}
	cf := reggie.FactoryOf[reggie.NetHTTPBody](reggie.NetHTTPFactory{Config: cfg}, opts...)
	return cf.Create(), done, nil
}

func runFetch(cmd *cobra.Command, g *globalFlags, f *fetchFlags, url string) error {
	cl, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()

	method := f.Method
	if method == "" && cmd.Flags().Changed("data") {
		method = http.MethodPost
	}
	req, err := reggie.NewRequest(method, url, f.Data)
	if err != nil {
		return err
	}
	for _, h := range f.Headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("malformed header %q", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	ctx := cmd.Context()
	resp, err := reggie.Send(ctx, cl, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out := cmd.OutOrStdout()
	if f.Include {
		fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
		resp.Header.Write(out)
		fmt.Fprintln(out)
	}
	switch {
	case f.Stream:
		for chunk, err := range reggie.BytesStream(resp).All(ctx) {
			if err != nil {
				return err
			}
			if _, err := out.Write(chunk); err != nil {
				return err
			}
		}
		return nil
	case f.JSON:
		v, err := reggie.JSON[any](ctx, resp)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		text, err := reggie.Text(ctx, resp)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}
}
