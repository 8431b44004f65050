// 包 actor 提供经过认证的操作者上下文。
// 身份认证由外部网关完成，网关在转发请求时注入身份请求头；
// 本服务只信任这些头并将其转换为显式的 Actor 传入各个处理器。
package actor

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
)

// Role 操作者角色
type Role string

const (
	RoleDataClerk      Role = "Data Clerk"      // 数据录入员
	RoleFinanceOfficer Role = "Finance Officer" // 财务专员
	RoleCoordinator    Role = "Coordinator"     // 协调员
	RoleAdministrator  Role = "Administrator"   // 系统管理员
)

// 网关注入的身份请求头
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// Actor 经过认证的操作者身份
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type ctxKey struct{}

// WithActor 将操作者注入上下文
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext 从上下文取出操作者；未经过认证中间件时返回 false
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// Middleware 从请求头提取操作者并注入请求上下文。
// 缺少身份头的请求在进入任何领域逻辑前被拒绝。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderActorID)
		if id == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing actor identity", "")
			c.Abort()
			return
		}
		a := Actor{
			ID:   id,
			Name: c.GetHeader(HeaderActorName),
			Role: Role(c.GetHeader(HeaderActorRole)),
		}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), a))
		c.Next()
	}
}

// RequireRoles 角色门禁。角色校验先于任何领域逻辑执行。
func RequireRoles(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := FromContext(c.Request.Context())
		if !ok {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing actor identity", "")
			c.Abort()
			return
		}
		for _, role := range roles {
			if a.Role == role {
				c.Next()
				return
			}
		}
		response.ErrorWithStatus(c, http.StatusForbidden, "insufficient role: "+string(a.Role), "")
		c.Abort()
	}
}
