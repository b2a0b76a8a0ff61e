package nlu

import (
	"context"

	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// FallbackCapabilities wraps a primary capability provider with a fallback.
// If the primary fails, the call automatically retries with the fallback, so
// callers never see an upstream failure as long as the fallback holds.
type FallbackCapabilities struct {
	primary  Capabilities
	fallback Capabilities
	logger   *logging.Logger
}

// WithFallback combines a primary provider (typically model-backed) with a
// fallback (typically deterministic). If fallback is nil, primary errors
// surface unchanged.
func WithFallback(primary, fallback Capabilities, logger *logging.Logger) *FallbackCapabilities {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackCapabilities{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithComponent("nlu"),
	}
}

// ResolveIntent tries the primary resolver, then the fallback.
func (c *FallbackCapabilities) ResolveIntent(ctx context.Context, message string, conv Context) (Resolution, error) {
	res, err := c.primary.ResolveIntent(ctx, message, conv)
	if err == nil {
		return res, nil
	}
	c.logger.Warn("primary intent resolution failed",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil {
		return Resolution{}, err
	}
	return c.fallback.ResolveIntent(ctx, message, conv)
}

// ExtractFields tries the primary extractor, then the fallback.
func (c *FallbackCapabilities) ExtractFields(ctx context.Context, message string) (Fields, error) {
	fields, err := c.primary.ExtractFields(ctx, message)
	if err == nil {
		return fields, nil
	}
	c.logger.Warn("primary field extraction failed", "error", err.Error())
	if c.fallback == nil {
		return Fields{}, err
	}
	return c.fallback.ExtractFields(ctx, message)
}

// GenerateReply tries the primary generator, then the fallback templates.
func (c *FallbackCapabilities) GenerateReply(ctx context.Context, prompt Prompt) (string, error) {
	text, err := c.primary.GenerateReply(ctx, prompt)
	if err == nil {
		return text, nil
	}
	c.logger.Warn("primary reply generation failed", "error", err.Error())
	if c.fallback == nil {
		return "", err
	}
	return c.fallback.GenerateReply(ctx, prompt)
}
