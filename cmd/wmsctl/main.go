package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/ariefcatur/go-warehouse-orders/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrAuth):
		return "not logged in or session expired: run `wmsctl login`"
	case errors.Is(err, client.ErrNetwork):
		return "cannot reach the API: " + err.Error()
	case errors.As(err, &apiErr) && errors.Is(err, client.ErrInsufficientStock):
		msg := "insufficient stock:"
		for _, d := range apiErr.StockDetails() {
			msg += fmt.Sprintf("\n  product %s: required %d, available %d", d.ProductID, d.Required, d.Available)
		}
		return msg
	case errors.As(err, &apiErr):
		if f := apiErr.Field(); f != "" {
			return fmt.Sprintf("%s (field %s)", apiErr.Message, f)
		}
		return apiErr.Message
	}
	return err.Error()
}
