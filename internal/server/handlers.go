package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/commercekit/paygate/internal/config"
	gatewaydomain "github.com/commercekit/paygate/internal/gateway/domain"
	gatewaysvc "github.com/commercekit/paygate/internal/gateway/service"
	ipndomain "github.com/commercekit/paygate/internal/ipn/domain"
	ipnsvc "github.com/commercekit/paygate/internal/ipn/service"
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	"github.com/commercekit/paygate/internal/metrics"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"github.com/commercekit/paygate/internal/provider"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Gateway   *gatewaysvc.Service
	Processor *ipnsvc.Processor
	Ledger    ledgerdomain.Service
	Metrics   *metrics.Metrics
}

// Server exposes the payment plugin over HTTP: the provider-facing IPN
// endpoint, the customer-facing checkout flow and the merchant-facing refund
// surface.
type Server struct {
	log       *zap.Logger
	cfg       config.Config
	gateway   *gatewaysvc.Service
	processor *ipnsvc.Processor
	ledger    ledgerdomain.Service
	metrics   *metrics.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		log:       p.Log.Named("server"),
		cfg:       p.Cfg,
		gateway:   p.Gateway,
		processor: p.Processor,
		ledger:    p.Ledger,
		metrics:   p.Metrics,
	}
}

func (s *Server) Register(r *gin.Engine) {
	payment := r.Group("/payment")
	payment.POST("/ipn", s.handleIPN)
	payment.POST("/checkout/:orderId", s.handleCheckout)
	payment.GET("/success", s.handleSuccess)
	payment.GET("/failure", s.handleFailure)
	payment.GET("/status", s.handleStatus)

	admin := r.Group("/admin/orders/:orderId")
	admin.GET("/transactions", s.handleListTransactions)
	admin.GET("/refund-info", s.handleRefundInfo)
	admin.POST("/refund", s.handleRefund)
}

// handleIPN answers the provider's server-to-server notification. The
// provider only inspects the plain-text body, so the response is always 200
// with a body describing the outcome.
func (s *Server) handleIPN(c *gin.Context) {
	start := time.Now()

	values, ok := ipnPayload(c)
	if !ok {
		c.String(http.StatusOK, "Something went wrong: malformed payload")
		return
	}

	err := s.processor.Process(c.Request.Context(), values, c.Query("secret"))
	s.metrics.IPNReceived(values.Get("type"), ipnOutcome(err))
	s.metrics.ObserveIPNDuration(time.Since(start).Seconds())

	if err != nil {
		s.log.Warn("ipn rejected", zap.Error(err))
	}
	c.String(http.StatusOK, ipnResponse(err))
}

// ipnPayload accepts both the provider's urlencoded form and its JSON body
// variant, normalized to form values.
func ipnPayload(c *gin.Context) (url.Values, bool) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var fields map[string]any
		if err := c.ShouldBindJSON(&fields); err != nil {
			return nil, false
		}
		values := url.Values{}
		for name, value := range fields {
			values.Set(name, fmt.Sprint(value))
		}
		return values, true
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, false
	}
	return c.Request.PostForm, true
}

func ipnResponse(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ipndomain.ErrInvalidHash),
		errors.Is(err, ipndomain.ErrInvalidSubscriptionHash):
		return "Invalid hash"
	case errors.Is(err, ipndomain.ErrUnrecognizedType):
		return "Unrecognized ipn type"
	default:
		return "Something went wrong: " + err.Error()
	}
}

func ipnOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ipndomain.ErrInvalidSecret):
		return "invalid_secret"
	case errors.Is(err, ipndomain.ErrInvalidHash),
		errors.Is(err, ipndomain.ErrInvalidSubscriptionHash):
		return "invalid_hash"
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ipndomain.ErrUnrecognizedType):
		return "unrecognized_type"
	default:
		return "rejected"
	}
}

func (s *Server) handleCheckout(c *gin.Context) {
	orderID, ok := parseOrderParam(c)
	if !ok {
		s.metrics.CheckoutStarted("bad_request")
		return
	}

	urls := gatewaydomain.ReturnURLs{
		Success: s.returnURL(c, "/payment/success", orderID),
		Failure: s.returnURL(c, "/payment/failure", orderID),
	}
	redirect, err := s.gateway.StartCheckout(c.Request.Context(), sessionID(c), orderID, urls)
	if err != nil {
		s.metrics.CheckoutStarted("error")
		s.renderError(c, err)
		return
	}

	s.metrics.CheckoutStarted("ok")
	c.JSON(http.StatusOK, gin.H{"redirect_url": redirect})
}

func (s *Server) handleSuccess(c *gin.Context) {
	orderID, ok := parseOrderQuery(c)
	if !ok {
		return
	}

	checkToken, err := s.gateway.HandleSuccess(c.Request.Context(), sessionID(c), orderID, c.Query("token"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_token": checkToken})
}

func (s *Server) handleFailure(c *gin.Context) {
	orderID, ok := parseOrderQuery(c)
	if !ok {
		return
	}

	if err := s.gateway.HandleFailure(c.Request.Context(), sessionID(c), orderID, c.Query("token")); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleStatus(c *gin.Context) {
	result, err := s.gateway.CheckStatus(c.Request.Context(), sessionID(c), c.Query("token"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	orderID, ok := parseOrderParam(c)
	if !ok {
		return
	}

	records, err := s.ledger.List(c.Request.Context(), orderID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

func (s *Server) handleRefundInfo(c *gin.Context) {
	orderID, ok := parseOrderParam(c)
	if !ok {
		return
	}

	info, err := s.gateway.RefundInfo(c.Request.Context(), orderID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type refundRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (s *Server) handleRefund(c *gin.Context) {
	orderID, ok := parseOrderParam(c)
	if !ok {
		s.metrics.RefundRequested("bad_request")
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.RefundRequested("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "amount is required"})
		return
	}

	// Refunds are not retried automatically; the admin re-triggers on failure.
	if err := s.gateway.RefundOrder(c.Request.Context(), orderID, req.Amount); err != nil {
		s.metrics.RefundRequested("error")
		s.log.Warn("refund failed", zap.String("order_id", orderID.String()), zap.Error(err))
		c.JSON(refundStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}

	s.metrics.RefundRequested("ok")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func refundStatus(err error) int {
	switch {
	case errors.Is(err, gatewaydomain.ErrNothingToRefund),
		errors.Is(err, gatewaydomain.ErrRefundTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, gatewaydomain.ErrMissingTransaction):
		return http.StatusConflict
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, orderdomain.ErrMissingOrderID):
		status = http.StatusNotFound
	case errors.Is(err, gatewaydomain.ErrInvalidReturn):
		status = http.StatusForbidden
	case errors.Is(err, gatewaydomain.ErrNothingToRefund),
		errors.Is(err, gatewaydomain.ErrRefundTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, gatewaydomain.ErrMissingTransaction):
		status = http.StatusConflict
	case errors.Is(err, provider.ErrTransient):
		status = http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrGateway):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseOrderParam(c *gin.Context) (snowflake.ID, bool) {
	return parseOrder(c, c.Param("orderId"))
}

func parseOrderQuery(c *gin.Context) (snowflake.ID, bool) {
	return parseOrder(c, c.Query("order"))
}

func parseOrder(c *gin.Context, raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

// returnURL builds an absolute URL back to this service for the provider's
// browser redirects. The gateway appends the single-use token itself.
func (s *Server) returnURL(c *gin.Context, path string, orderID snowflake.ID) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + path + "?order=" + orderID.String()
}
