package controller

import (
	"edulearn_backend/internal/model"
	"edulearn_backend/internal/service"
	"edulearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubscriptionController struct {
	SubscriptionService *service.SubscriptionService
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{SubscriptionService: subscriptionService}
}

// ListPlans godoc
// @Summary List the available subscription plans
// @Tags subscriptions
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.SubscriptionPlan}
// @Router /api/plans [get]
func (c *SubscriptionController) ListPlans(ctx *gin.Context) {
	plans, err := c.SubscriptionService.Plans.ListPlans()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, plans)
}

// CurrentPlan godoc
// @Summary Current user's active plan with limits
// @Tags subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.SubscriptionPlan}
// @Failure 402 {object} util.Response "no active plan"
// @Router /api/subscription [get]
func (c *SubscriptionController) CurrentPlan(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	plan, err := c.SubscriptionService.ActivePlan(claims.UserID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

// Usage godoc
// @Summary Usage against every limit of the active plan
// @Tags subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 402 {object} util.Response "no active plan"
// @Router /api/subscription/usage [get]
func (c *SubscriptionController) Usage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	plan, err := c.SubscriptionService.ActivePlan(claims.UserID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}

	type usageEntry struct {
		ResourceType model.ResourceType `json:"resourceType"`
		CurrentUsage int                `json:"currentUsage"`
		Limit        int                `json:"limit"`
		Percentage   float64            `json:"percentage"`
	}

	entries := make([]usageEntry, 0, len(model.KnownResourceTypes))
	for _, rt := range model.KnownResourceTypes {
		current, err := c.SubscriptionService.Usage.Current(claims.UserID, rt)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		pct, err := c.SubscriptionService.UsagePercentage(claims.UserID, rt)
		if err != nil {
			util.BusinessError(ctx, err)
			return
		}
		entries = append(entries, usageEntry{
			ResourceType: rt,
			CurrentUsage: current,
			Limit:        plan.LimitFor(rt),
			Percentage:   pct,
		})
	}

	util.Success(ctx, gin.H{"plan": plan.Name, "usage": entries})
}

// SyncUsage godoc
// @Summary Reconcile a tracked counter with the authoritative count
// @Tags subscriptions
// @Produce  json
// @Security BearerAuth
// @Param   resource path string true "resource type"
// @Success 200 {object} util.Response{data=object}
// @Router /api/subscription/usage/{resource}/sync [post]
func (c *SubscriptionController) SyncUsage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	rt := model.ResourceType(ctx.Param("resource"))
	if !rt.Known() {
		util.BadRequest(ctx, "unknown resource type")
		return
	}

	count, err := c.SubscriptionService.SyncUsage(claims.UserID, rt)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"resourceType": rt, "currentCount": count})
}

type planChangeReq struct {
	PlanID uint `json:"planId" binding:"required"`
}

// Upgrade godoc
// @Summary Move to a higher-priority plan
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body planChangeReq true "target plan"
// @Success 200 {object} util.Response{data=model.UserSubscription}
// @Failure 422 {object} util.Response "wrong direction"
// @Router /api/subscription/upgrade [post]
func (c *SubscriptionController) Upgrade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req planChangeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubscriptionService.Upgrade(claims.UserID, req.PlanID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// Downgrade godoc
// @Summary Move to a lower-priority plan
// @Description Rejected with the full violation list when current usage
// @Description exceeds any limit of the target plan.
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body planChangeReq true "target plan"
// @Success 200 {object} util.Response{data=model.UserSubscription}
// @Failure 409 {object} util.Response "usage exceeds target limits"
// @Failure 422 {object} util.Response "wrong direction"
// @Router /api/subscription/downgrade [post]
func (c *SubscriptionController) Downgrade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req planChangeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubscriptionService.Downgrade(claims.UserID, req.PlanID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// Cancel godoc
// @Summary Cancel the active subscription
// @Description Falls back to the free tier through the validated downgrade
// @Description path; rejected atomically when usage does not fit it.
// @Tags subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.UserSubscription}
// @Failure 409 {object} util.Response "usage exceeds free tier limits"
// @Router /api/subscription [delete]
func (c *SubscriptionController) Cancel(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sub, err := c.SubscriptionService.Cancel(claims.UserID)
	if err != nil {
		util.BusinessError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
