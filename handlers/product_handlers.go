package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shelfwise/api/models"
	"shelfwise/api/store"
	"shelfwise/api/utils"
)

type ProductHandlers struct {
	ProductStore *store.ProductStore
}

func NewProductHandlers(productStore *store.ProductStore) *ProductHandlers {
	return &ProductHandlers{ProductStore: productStore}
}

func (h *ProductHandlers) ListProducts(c *gin.Context) {
	products, err := h.ProductStore.ListProducts(c.Request.Context(), c.Query("category"), c.Query("type"))
	if err != nil {
		log.Printf("Error listing products: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"products": products})
}

func (h *ProductHandlers) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondValidationError(c, "Invalid product id", nil)
		return
	}

	product, err := h.ProductStore.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("Error getting product %d: %v", id, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"product": product})
}

func (h *ProductHandlers) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, "Invalid request body", nil)
		return
	}

	product, err := h.ProductStore.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}

	utils.RespondCreated(c, "Product created successfully", gin.H{"product": product})
}
