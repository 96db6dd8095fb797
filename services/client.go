// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package services holds the REST clients for the external services the
// routes consume. Every response is treated as untrusted input.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 15 * time.Second

var (
	ErrNotFound    = errors.New("not found")
	ErrBadResponse = errors.New("bad service response")
)

func newRestClient(baseURL string) *resty.Client {
	return resty.New().
		SetHostURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
}

// get issues a GET and decodes the JSON body into out. A 404 maps to
// ErrNotFound.
func get(ctx context.Context, client *resty.Client, path string, query map[string]string, out any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.IsError():
		return fmt.Errorf("GET %s: %w: status %d", path, ErrBadResponse, resp.StatusCode())
	}
	return nil
}
