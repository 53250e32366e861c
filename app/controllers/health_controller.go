package controllers

import (
	"github.com/yellowrose/possrv/pkg/cache"
	"github.com/yellowrose/possrv/pkg/ctx"
)

// Health answers liveness probes.
func Health(c *ctx.Context) {
	c.Success(map[string]string{
		"status": "ok",
		"cache":  cache.Default.Driver(),
	})
}
