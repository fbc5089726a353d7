package ledger

import (
	"context"
	"fmt"
	"strings"
)

// PackageRef names the package half of an Identifier. Exactly one of ID and
// Alias is set: ID pins a concrete package, Alias defers the choice to a
// PackageDirectory at submission time.
type PackageRef struct {
	ID    string
	Alias string
}

// PackageID returns a PackageRef pinned to a concrete package.
func PackageID(id string) PackageRef {
	return PackageRef{ID: id}
}

// PackageAlias returns a PackageRef naming a package by alias. The alias is
// resolved lazily against a PackageDirectory when the identifier is
// serialized.
func PackageAlias(alias string) PackageRef {
	return PackageRef{Alias: alias}
}

// Resolved reports whether the ref already carries a concrete package ID.
func (p PackageRef) Resolved() bool {
	return p.ID != ""
}

// Identifier names a template, data type, or choice-bearing interface. The
// dotted module and entity paths follow the ledger's naming scheme; the
// package half may stay symbolic until submission.
type Identifier struct {
	Package PackageRef
	Module  string
	Entity  string
}

// NewIdentifier builds an identifier with a pinned package ID.
func NewIdentifier(packageID, module, entity string) Identifier {
	return Identifier{Package: PackageID(packageID), Module: module, Entity: entity}
}

// NewAliasedIdentifier builds an identifier whose package is named by alias
// and resolved at submission time.
func NewAliasedIdentifier(alias, module, entity string) Identifier {
	return Identifier{Package: PackageAlias(alias), Module: module, Entity: entity}
}

// Validate checks structural well-formedness: a package ref with exactly
// one side set and non-empty module and entity paths.
func (id Identifier) Validate() error {
	hasID := id.Package.ID != ""
	hasAlias := id.Package.Alias != ""
	switch {
	case hasID && hasAlias:
		return fmt.Errorf("identifier %s: package id and alias both set", id)
	case !hasID && !hasAlias:
		return fmt.Errorf("identifier %s: package id or alias required", id)
	}
	if id.Module == "" {
		return fmt.Errorf("identifier %s: module name required", id)
	}
	if id.Entity == "" {
		return fmt.Errorf("identifier %s: entity name required", id)
	}
	return nil
}

// Resolve returns a copy with the package alias replaced by a concrete
// package ID from dir. Identifiers that are already pinned pass through
// unchanged and never consult the directory.
func (id Identifier) Resolve(ctx context.Context, dir PackageDirectory) (Identifier, error) {
	if id.Package.Resolved() {
		return id, nil
	}
	if id.Package.Alias == "" {
		return Identifier{}, fmt.Errorf("identifier %s: no package to resolve", id)
	}
	pkg, err := dir.ResolvePackage(ctx, id.Package.Alias)
	if err != nil {
		return Identifier{}, fmt.Errorf("resolve package alias %q for %s.%s: %w", id.Package.Alias, id.Module, id.Entity, err)
	}
	resolved := id
	resolved.Package = PackageID(pkg)
	return resolved, nil
}

// String renders package:module:entity, with an alias shown as #alias.
func (id Identifier) String() string {
	var b strings.Builder
	if id.Package.ID != "" {
		b.WriteString(id.Package.ID)
	} else if id.Package.Alias != "" {
		b.WriteString("#")
		b.WriteString(id.Package.Alias)
	}
	b.WriteString(":")
	b.WriteString(id.Module)
	b.WriteString(":")
	b.WriteString(id.Entity)
	return b.String()
}
