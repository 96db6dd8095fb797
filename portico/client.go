// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portico

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/luxfi/log"
)

const (
	createOrderPath = "/api/order/create"

	defaultRequestTimeout = 15 * time.Second
)

// OrderClient talks to the Portico order service
type OrderClient struct {
	client *resty.Client
	log    log.Logger
}

// NewOrderClient returns a client for the order service at baseURL.
func NewOrderClient(baseURL string, logger log.Logger) *OrderClient {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &OrderClient{
		client: resty.New().SetHostURL(baseURL).SetTimeout(defaultRequestTimeout),
		log:    logger,
	}
}

// CreateOrder asks the service for a start() transaction and validates it
// against the request before returning it.
func (c *OrderClient) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, *TradeParameters, error) {
	var out CreateOrderResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(createOrderPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create portico order: %w", err)
	}
	if resp.IsError() {
		return nil, nil, fmt.Errorf("portico order service returned %d: %s", resp.StatusCode(), resp.String())
	}

	params, err := ValidateCreateOrderResponse(&out, req)
	if err != nil {
		c.log.Warn("rejected portico order",
			log.String("target", out.TransactionTarget),
			log.Err(err),
		)
		return nil, nil, err
	}
	c.log.Debug("created portico order",
		log.Uint64("bridgeNonce", uint64(params.FlagSet.BridgeNonce)),
		log.String("estimatedAmountOut", out.EstimatedAmountOut),
	)
	return &out, params, nil
}
