package service

import "context"

// deletePolicy captures the shared removal rule: a record with dependents is
// deactivated so history stays intact; one without dependents is removed
// outright. Customers guard on their orders, distributors on their items,
// and items on their order lines.
type deletePolicy struct {
	count      func(ctx context.Context) (int, error)
	deactivate func(ctx context.Context) error
	delete     func(ctx context.Context) error
}

// deleteOrDeactivate applies the policy and reports whether the record was
// deactivated rather than deleted.
func deleteOrDeactivate(ctx context.Context, p deletePolicy) (deactivated bool, err error) {
	n, err := p.count(ctx)
	if err != nil {
		return false, err
	}

	if n > 0 {
		if err := p.deactivate(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := p.delete(ctx); err != nil {
		return false, err
	}
	return false, nil
}
