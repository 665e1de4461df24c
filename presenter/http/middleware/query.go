package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gobridge/bridge-points/entity"
	"github.com/gobridge/bridge-points/presenter/http/render"
)

type ctxKey int

const (
	addressCtxKey ctxKey = iota
	limitCtxKey
	transferFilterCtxKey
)

func GetAddressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimSpace(r.URL.Query().Get("addr"))
		if addr == "" {
			render.Error(w, r, fmt.Errorf("addr parameter is required: %w", render.ErrBadRequest))
			return
		}
		ctx := context.WithValue(r.Context(), addressCtxKey, strings.ToLower(addr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Address(ctx context.Context) string {
	addr, _ := ctx.Value(addressCtxKey).(string)
	return addr
}

// GetLimitMiddleware parses the limit parameter, accepting values in
// [1, maxLimit] and using defaultLimit when it is absent.
func GetLimitMiddleware(defaultLimit, maxLimit uint64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := defaultLimit
			if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
				n, err := strconv.ParseUint(limitStr, 10, 64)
				if err != nil || n < 1 || n > maxLimit {
					render.Error(w, r, fmt.Errorf("limit should be an integer between 1 and %d: %w", maxLimit, render.ErrBadRequest))
					return
				}
				limit = n
			}
			ctx := context.WithValue(r.Context(), limitCtxKey, limit)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Limit(ctx context.Context) uint64 {
	limit, _ := ctx.Value(limitCtxKey).(uint64)
	return limit
}

func GetTransferFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()
		filter := &entity.TransferFilter{
			Wallet: Address(ctx),
			Limit:  Limit(ctx),
		}

		var err error
		if filter.FromChain, err = parseOptionalUint(query.Get("fromChain")); err != nil {
			render.Error(w, r, fmt.Errorf("invalid fromChain: %w", err))
			return
		}
		if filter.ToChain, err = parseOptionalUint(query.Get("toChain")); err != nil {
			render.Error(w, r, fmt.Errorf("invalid toChain: %w", err))
			return
		}
		switch query.Get("sort") {
		case "", "start":
			filter.Sort = entity.SortByStart
		case "end":
			filter.Sort = entity.SortByEnd
		default:
			render.Error(w, r, fmt.Errorf("sort should be one of start, end: %w", render.ErrBadRequest))
			return
		}
		cursor, err := parseOptionalUint(query.Get("cursor"))
		if err != nil || (cursor != nil && *cursor == 0) {
			render.Error(w, r, fmt.Errorf("cursor should be a transfer id: %w", render.ErrBadRequest))
			return
		}
		if cursor != nil {
			filter.Cursor = *cursor
		}

		ctx = context.WithValue(ctx, transferFilterCtxKey, filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TransferFilter(ctx context.Context) *entity.TransferFilter {
	if filter, ok := ctx.Value(transferFilterCtxKey).(*entity.TransferFilter); ok {
		return filter
	}
	return new(entity.TransferFilter)
}

func parseOptionalUint(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not an unsigned integer: %w", s, render.ErrBadRequest)
	}
	return &n, nil
}
