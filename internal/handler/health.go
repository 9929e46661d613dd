package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running. It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

const unresolvedAddress = "Could not resolve IP-address"

// VersionHandler reports which service and build is answering.
type VersionHandler struct {
	Service string
	Version string
	// Resolve returns the addresses of the local host; nil uses the
	// system resolver.
	Resolve func(ctx context.Context) ([]net.IP, error)
}

// GetVersion handles GET /version. A host address that cannot be resolved
// is reported in the body instead of failing the request.
func (h *VersionHandler) GetVersion(c echo.Context) error {
	props := map[string]string{
		"service": h.Service,
		"version": h.Version,
	}
	resolve := h.Resolve
	if resolve == nil {
		resolve = localAddresses
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	props["hosted-at-address"] = unresolvedAddress
	if ips, err := resolve(ctx); err != nil {
		c.Logger().Errorf("resolve host address: %v", err)
	} else if ip := firstIPv4(ips); ip != "" {
		props["hosted-at-address"] = ip
	}
	return c.JSON(http.StatusOK, props)
}

func localAddresses(ctx context.Context) ([]net.IP, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	return net.DefaultResolver.LookupIP(ctx, "ip", host)
}

func firstIPv4(ips []net.IP) string {
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}
