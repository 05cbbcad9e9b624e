package authapi

import (
	"context"
	"log/slog"
	"net"
)

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP) {
	h.emitAudit(ctx, "auth.register", slog.String("user_id", userID), ipAttr(ip))
}

func (h *Handler) auditLoginFailed(ctx context.Context, userID string, ip net.IP, ua string, reason string) {
	h.emitAudit(ctx, "auth.login.failed",
		slog.String("user_id", userID),
		ipAttr(ip),
		slog.String("user_agent", ua),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID, sessionID string, ip net.IP, ua, platform string) {
	h.emitAudit(ctx, "auth.login.success",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
		ipAttr(ip),
		slog.String("user_agent", ua),
		slog.String("platform", platform),
	)
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, sessionID string, ip net.IP, platform string) {
	h.emitAudit(ctx, "auth.refresh.success",
		slog.String("session_id", sessionID),
		ipAttr(ip),
		slog.String("platform", platform),
	)
}

func (h *Handler) auditRefreshFailed(ctx context.Context, ip net.IP, err error) {
	h.emitAudit(ctx, "auth.refresh.failed", ipAttr(ip), slog.String("err", err.Error()))
}

func (h *Handler) auditLogout(ctx context.Context, ip net.IP, platform string) {
	h.emitAudit(ctx, "auth.logout", ipAttr(ip), slog.String("platform", platform))
}

func (h *Handler) emitAudit(ctx context.Context, action string, attrs ...slog.Attr) {
	if h == nil || h.audit == nil {
		return
	}
	h.audit.LogAttrs(ctx, slog.LevelInfo, action, attrs...)
}

func ipAttr(ip net.IP) slog.Attr {
	if ip == nil {
		return slog.String("ip", "")
	}
	return slog.String("ip", ip.String())
}
