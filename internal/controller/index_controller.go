package controller

import (
	"notes-rag-be/internal/pkg/serverutils"
	"notes-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIndexController interface {
	RegisterRoutes(r fiber.Router)
	Reconcile(ctx *fiber.Ctx) error
	RequestReconcile(ctx *fiber.Ctx) error
}

type indexController struct {
	indexService service.IIndexService
}

func NewIndexController(indexService service.IIndexService) IIndexController {
	return &indexController{indexService: indexService}
}

func (c *indexController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/index/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("reconcile", c.Reconcile)
	h.Post("reconcile/async", c.RequestReconcile)
}

// Reconcile repairs the caller's index and reports what changed.
func (c *indexController) Reconcile(ctx *fiber.Ctx) error {
	ownerId, err := serverutils.OwnerID(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexService.Reconcile(ctx.UserContext(), ownerId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reconcile index", res))
}

func (c *indexController) RequestReconcile(ctx *fiber.Ctx) error {
	ownerId, err := serverutils.OwnerID(ctx)
	if err != nil {
		return err
	}

	if err := c.indexService.RequestReconcile(ctx.UserContext(), ownerId); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.Response{
		Success: true,
		Code:    fiber.StatusAccepted,
		Message: "Reconcile requested",
	})
}
