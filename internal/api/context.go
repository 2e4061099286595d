package api

import (
	"context"

	"backoffice/internal/auth"
)

type ctxKey string

const ctxKeyOperator ctxKey = "operator"

func WithOperator(ctx context.Context, op *auth.Operator) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, op)
}

func OperatorFromContext(ctx context.Context) *auth.Operator {
	v := ctx.Value(ctxKeyOperator)
	if v == nil {
		return nil
	}
	op, _ := v.(*auth.Operator)
	return op
}

// ActorFromContext names the operator for journal entries.
func ActorFromContext(ctx context.Context) string {
	if op := OperatorFromContext(ctx); op != nil && op.Subject != "" {
		return op.Subject
	}
	return "system"
}
