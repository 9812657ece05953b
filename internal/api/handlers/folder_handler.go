package handlers

import (
	"github.com/gin-gonic/gin"
)

type FolderHandler struct{ base }

// ListBySpace lists the folders of a space.
func (h *FolderHandler) ListBySpace(c *gin.Context) {
	res, err := h.q.Folders.BySpace(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

// ListMine lists every folder the current user can see.
func (h *FolderHandler) ListMine(c *gin.Context) {
	res, err := h.q.Folders.Mine(c.Request.Context())
	respond(c, h.q, res, err)
}

func (h *FolderHandler) Get(c *gin.Context) {
	res, err := h.q.Folders.Get(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}

// ListProjects lists the projects filed under a folder.
func (h *FolderHandler) ListProjects(c *gin.Context) {
	res, err := h.q.Projects.ListByFolder(c.Request.Context(), c.Param("id"))
	respond(c, h.q, res, err)
}
