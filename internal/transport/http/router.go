package httpapi

import (
	"context"
	"net/http"

	"galebot/internal/executor"
	"galebot/internal/logger"

	"github.com/gin-gonic/gin"
)

// Service is the application surface the HTTP facade exposes.
type Service interface {
	Authenticate(ctx context.Context, email, password string) executor.AuthCheck
	Operate(ctx context.Context, userID string, op executor.Operation) (bool, error)
	AccountTrader(ctx context.Context, traderName string, op executor.Operation) (bool, error)
}

type Router struct {
	svc Service
}

func NewRouter(svc Service) *Router {
	return &Router{svc: svc}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/authenticate", r.handleAuthenticate)
	group.POST("/operate", r.handleOperate)
	group.POST("/account-trader", r.handleAccountTrader)
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Router) handleAuthenticate(c *gin.Context) {
	var req authenticateRequest
	if !bindValidated(c, authenticateSchema, &req) {
		return
	}
	res := r.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	c.JSON(http.StatusOK, res)
}

type operateRequest struct {
	UserID    string             `json:"userId"`
	Operation executor.Operation `json:"operation"`
}

func (r *Router) handleOperate(c *gin.Context) {
	var req operateRequest
	if !bindValidated(c, operateSchema, &req) {
		return
	}
	ok, err := r.svc.Operate(c.Request.Context(), req.UserID, req.Operation)
	if err != nil {
		logger.Errorf("HTTP operate for user %s failed: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

type accountTraderRequest struct {
	Trader    string             `json:"trader"`
	Operation executor.Operation `json:"operation"`
}

func (r *Router) handleAccountTrader(c *gin.Context) {
	var req accountTraderRequest
	if !bindValidated(c, accountTraderSchema, &req) {
		return
	}
	ok, err := r.svc.AccountTrader(c.Request.Context(), req.Trader, req.Operation)
	if err != nil {
		logger.Errorf("HTTP account-trader %s failed: %v", req.Trader, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
