package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func (h *CategoryHandler) List(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Where("active = ?", true).Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req transport.CategoryRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	category := models.Category{Name: req.Name, Slug: req.Slug, Active: true}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "category already exists")
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) Patch(c echo.Context) error {
	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category id")
	}

	var req transport.CategoryRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	category.Name = req.Name
	category.Slug = req.Slug
	if err := h.DB.Save(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category id")
	}

	res := h.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.NoContent(http.StatusNoContent)
}
