package router

import (
	"github.com/finadmin/backend/internal/interfaces/http/handler"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	FX          *handler.FXHandler
	Payables    *handler.LedgerHandler
	Receivables *handler.LedgerHandler
	Settlements *handler.SettlementHandler
	Contracts   *handler.ContractHandler
	System      *handler.SystemHandler
}

// FXRoutes serves rate lookups, conversion and the daily refresh
func FXRoutes(h *handler.FXHandler) *DomainGroup {
	g := NewDomainGroup("fx", "/fx")
	g.GET("/rates", h.GetRates)
	g.GET("/rate", h.GetRate)
	g.POST("/convert", h.Convert)
	g.POST("/refresh", h.Refresh)
	return g
}

// FinanceRoutes serves payables, receivables and their settlements
func FinanceRoutes(payables, receivables *handler.LedgerHandler, settlements *handler.SettlementHandler) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")
	ledgerRoutes(g.Group("payables", "/payables"), payables, "/payments")
	ledgerRoutes(g.Group("receivables", "/receivables"), receivables, "/receipts")
	g.POST("/settlements/:id/reverse", settlements.Reverse)
	g.POST("/reconcile", settlements.Reconcile)
	return g
}

func ledgerRoutes(g *DomainGroup, h *handler.LedgerHandler, settlementPath string) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
	g.GET("/overdue", h.Overdue)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id"+settlementPath, h.RecordSettlement)
	g.GET("/:id"+settlementPath, h.ListSettlements)
}

// ContractRoutes serves recurring billing contracts
func ContractRoutes(h *handler.ContractHandler) *DomainGroup {
	g := NewDomainGroup("contracts", "/contracts")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/items", h.AddItem)
	g.POST("/:id/suspend", h.Suspend)
	g.POST("/:id/resume", h.Resume)
	g.POST("/:id/terminate", h.Terminate)
	g.POST("/:id/advance", h.Advance)
	return g
}

// RegisterAPI mounts every API group plus /health and /api/v1/ping
func RegisterAPI(r *Router, h Handlers) {
	r.Register(FXRoutes(h.FX)).
		Register(FinanceRoutes(h.Payables, h.Receivables, h.Settlements)).
		Register(ContractRoutes(h.Contracts)).
		Register(NewDomainGroup("system", "").GET("/ping", h.System.Ping))
	r.engine.GET("/health", h.System.Health)
}
