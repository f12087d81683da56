// Package auth carries the actor identity supplied by the external auth layer
package auth

import "context"

type contextKey string

const actorKey contextKey = "actor"

// DefaultActor is attributed when no identity was supplied
// 識別情報が供給されなかった場合に帰属される操作者
const DefaultActor = "system"

// WithActor returns a context carrying the actor identity
// 操作者IDを保持するコンテキストを返す
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Actor extracts the actor identity from the context
// コンテキストから操作者IDを取得
func Actor(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey).(string); ok && val != "" {
		return val
	}
	return DefaultActor
}
