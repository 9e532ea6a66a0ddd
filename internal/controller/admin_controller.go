package controller

import (
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/serverutils"
	"nau-assistant/internal/service"
	"nau-assistant/pkg/events"

	"github.com/gofiber/fiber/v2"
)

const defaultRefreshReason = "admin"

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	RefreshIndex(ctx *fiber.Ctx) error
	GetIndexStatus(ctx *fiber.Ctx) error
	PublishRefreshRequested(ctx *fiber.Ctx) error
}

type adminController struct {
	index     service.IIndexService
	bus       events.Publisher
	jwtSecret string
}

// NewAdminController guards every route with the admin JWT. bus may be nil
// when NATS is disabled.
func NewAdminController(index service.IIndexService, bus events.Publisher, jwtSecret string) IAdminController {
	return &adminController{index: index, bus: bus, jwtSecret: jwtSecret}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(serverutils.AdminJwtMiddleware(c.jwtSecret))
	h.Post("/index/refresh", c.RefreshIndex)
	h.Get("/index/status", c.GetIndexStatus)

	// simulates the crawler announcing a new snapshot
	h.Post("/events/refresh-requested", c.PublishRefreshRequested)
}

func (c *adminController) parseReason(ctx *fiber.Ctx) (string, error) {
	var req dto.RefreshIndexRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return "", err
		}
	}
	if req.Reason == "" {
		req.Reason = defaultRefreshReason
	}
	return req.Reason, nil
}

// RefreshIndex queues a reload and returns before it runs.
func (c *adminController) RefreshIndex(ctx *fiber.Ctx) error {
	reason, err := c.parseReason(ctx)
	if err != nil {
		return err
	}

	if err := c.index.RequestRefresh(ctx.UserContext(), reason); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Index refresh queued", dto.RefreshIndexResponse{
		Accepted: true,
		Reason:   reason,
	}))
}

func (c *adminController) GetIndexStatus(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Index status", c.index.Status(ctx.UserContext())))
}

func (c *adminController) PublishRefreshRequested(ctx *fiber.Ctx) error {
	if c.bus == nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(fiber.StatusServiceUnavailable, "Event bus not configured"))
	}
	reason, err := c.parseReason(ctx)
	if err != nil {
		return err
	}

	evt := events.IndexRefreshRequested{Reason: reason, RequestedAt: time.Now()}
	if err := c.bus.Publish(ctx.UserContext(), evt); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Refresh request published", dto.RefreshIndexResponse{
		Accepted: true,
		Reason:   reason,
	}))
}
