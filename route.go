// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

import (
	"fmt"
	"strings"
)

// Route identifies a bridging strategy
type Route uint8

const (
	RouteUnknown Route = iota
	RouteBridge
	RouteRelay
	RouteCCTPManual
	RouteCCTPRelay
	RouteNttManual
	RouteNttRelay
	RouteMayan
	RouteETHBridge
	RouteUSDTBridge
	RouteWstETHBridge
	RouteTBTC
)

var routeNames = map[Route]string{
	RouteBridge:       "bridge",
	RouteRelay:        "relay",
	RouteCCTPManual:   "cctpManual",
	RouteCCTPRelay:    "cctpRelay",
	RouteNttManual:    "nttManual",
	RouteNttRelay:     "nttRelay",
	RouteMayan:        "mayan",
	RouteETHBridge:    "ethBridge",
	RouteUSDTBridge:   "usdtBridge",
	RouteWstETHBridge: "wstETHBridge",
	RouteTBTC:         "tbtc",
}

// AllRoutes lists every known route in declaration order.
func AllRoutes() []Route {
	return []Route{
		RouteBridge,
		RouteRelay,
		RouteCCTPManual,
		RouteCCTPRelay,
		RouteNttManual,
		RouteNttRelay,
		RouteMayan,
		RouteETHBridge,
		RouteUSDTBridge,
		RouteWstETHBridge,
		RouteTBTC,
	}
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsAutomatic reports whether a relayer completes the transfer on the
// destination chain.
func (r Route) IsAutomatic() bool {
	switch r {
	case RouteRelay, RouteCCTPRelay, RouteNttRelay, RouteMayan,
		RouteETHBridge, RouteUSDTBridge, RouteWstETHBridge:
		return true
	default:
		return false
	}
}

// ParseRoute parses a route name, case-insensitively.
func ParseRoute(s string) (Route, error) {
	for r, name := range routeNames {
		if strings.EqualFold(name, s) {
			return r, nil
		}
	}
	return RouteUnknown, fmt.Errorf("%w: %q", ErrUnknownRoute, s)
}
