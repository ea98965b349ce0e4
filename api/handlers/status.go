package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BaSui01/lanmirror/internal/mirror"
	"github.com/BaSui01/lanmirror/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// MirrorController 控制面需要的镜像服务能力
type MirrorController interface {
	Start(ctx context.Context, port int) error
	Stop()
	Status() mirror.Status
	Subscribe(fn mirror.StatusHandler) *mirror.Subscription
}

// =============================================================================
// 🪞 镜像状态 Handler
// =============================================================================

// StatusHandler 提供状态查询、状态推送与启停控制
type StatusHandler struct {
	svc            MirrorController
	defaultPort    int
	originPatterns []string
	writeTimeout   time.Duration
	logger         *zap.Logger
}

// NewStatusHandler 创建状态处理器。originPatterns 为允许的 WebSocket 来源。
func NewStatusHandler(svc MirrorController, defaultPort int, originPatterns []string, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{
		svc:            svc,
		defaultPort:    defaultPort,
		originPatterns: originPatterns,
		writeTimeout:   5 * time.Second,
		logger:         logger.With(zap.String("component", "status_handler")),
	}
}

// HandleStatus 处理 GET /api/v1/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.svc.Status())
}

// HandleStart 处理 POST /api/v1/server/start[?port=n]
func (h *StatusHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	port := h.defaultPort
	if raw := r.URL.Query().Get("port"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 || p > 65535 {
			WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest,
				"port must be an integer between 0 and 65535", h.logger)
			return
		}
		port = p
	}

	if err := h.svc.Start(r.Context(), port); err != nil {
		code := types.GetErrorCode(err)
		if code == "" {
			code = types.ErrServiceUnavailable
		}
		msg := h.svc.Status().Error
		if msg == "" {
			msg = err.Error()
		}
		WriteError(w, r, types.NewError(code, msg).
			WithCause(err).
			WithHTTPStatus(http.StatusServiceUnavailable), h.logger)
		return
	}

	WriteSuccess(w, r, h.svc.Status())
}

// HandleStop 处理 POST /api/v1/server/stop
func (h *StatusHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.svc.Stop()
	WriteSuccess(w, r, h.svc.Status())
}

// HandleStream 处理 GET /api/v1/status/stream，以 WebSocket 推送每次状态变化，
// 首条消息为当前状态
func (h *StatusHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 客户端只接收，不发送；CloseRead 在对端关闭时取消 ctx
	ctx := conn.CloseRead(r.Context())

	updates := make(chan mirror.Status, 16)
	sub := h.svc.Subscribe(func(st mirror.Status) {
		select {
		case updates <- st:
		case <-ctx.Done():
		}
	})
	defer sub.Cancel()

	h.logger.Debug("status stream opened", zap.String("subscription_id", sub.ID()))

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			if err := h.write(ctx, conn, st); err != nil {
				return
			}
		case <-sub.Done():
			h.flush(ctx, conn, updates)
			_ = conn.Close(websocket.StatusGoingAway, "mirror service disposed")
			return
		}
	}
}

func (h *StatusHandler) write(ctx context.Context, conn *websocket.Conn, st mirror.Status) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, st); err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Debug("status stream write failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// flush 订阅结束后写出缓冲中剩余的状态
func (h *StatusHandler) flush(ctx context.Context, conn *websocket.Conn, updates <-chan mirror.Status) {
	for {
		select {
		case st := <-updates:
			if err := h.write(ctx, conn, st); err != nil {
				return
			}
		default:
			return
		}
	}
}

// ReadinessCheck 镜像服务运行时就绪
func ReadinessCheck(svc MirrorController) HealthCheck {
	return NewCheck("mirror", func(context.Context) error {
		st := svc.Status()
		if st.Running {
			return nil
		}
		if st.Error != "" {
			return errors.New(st.Error)
		}
		return errors.New("mirror server is not running")
	})
}
