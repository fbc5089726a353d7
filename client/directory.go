package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// remoteDirectory resolves package aliases through the node's package
// service. New wraps it in a ledger.CachingDirectory so each alias is
// resolved at most once per process.
type remoteDirectory struct {
	t       transport
	parties []string
	timeout func(context.Context) (context.Context, context.CancelFunc)
}

func (d *remoteDirectory) ResolvePackage(ctx context.Context, alias string) (string, error) {
	if strings.TrimSpace(alias) == "" {
		return "", fmt.Errorf("package alias is required")
	}
	if d.timeout != nil {
		var cancel context.CancelFunc
		ctx, cancel = d.timeout(ctx)
		defer cancel()
	}
	res, err := d.t.PreferredPackage(ctx, &wire.PreferredPackageRequest{
		PackageName: alias,
		Parties:     d.parties,
	})
	if err != nil {
		return "", fmt.Errorf("resolve package %q: %w", alias, err)
	}
	if res.PackageID == "" {
		return "", &ledger.UnknownPackageError{Alias: alias}
	}
	return res.PackageID, nil
}

var _ ledger.PackageDirectory = (*remoteDirectory)(nil)
