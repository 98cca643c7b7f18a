package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/storage"
	"github.com/taskboard/taskboard/internal/tasks"
	"github.com/taskboard/taskboard/internal/users"
)

// Handlers holds everything the HTTP layer needs
type Handlers struct {
	Tasks  tasks.TaskManager
	Users  users.UserManager
	Health *storage.HealthManager
	Logger *zap.Logger

	TaskDefaultLimit int
	UserDefaultLimit int
	MaxRequestSize   int64
	MetricsPath      string // empty disables the metrics endpoint
}

func (h *Handlers) taskQuery(c *gin.Context) query.Query {
	return query.Parse(c.Request.URL.Query(), tasks.QuerySchema, query.Options{DefaultLimit: h.TaskDefaultLimit})
}

func (h *Handlers) userQuery(c *gin.Context) query.Query {
	return query.Parse(c.Request.URL.Query(), users.QuerySchema, query.Options{DefaultLimit: h.UserDefaultLimit})
}

// Task handlers

func listTasks(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := h.taskQuery(c)

		if q.Count {
			count, err := h.Tasks.CountTasks(c.Request.Context(), q)
			if err != nil {
				h.fail(c, err)
				return
			}
			respond(c, http.StatusOK, "OK", count)
			return
		}

		list, err := h.Tasks.ListTasks(c.Request.Context(), q)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "OK", project(list, q.Projection))
	}
}

func createTask(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tasks.TaskRequest
		if err := bindBody(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		task, err := h.Tasks.CreateTask(c.Request.Context(), &req)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusCreated, "Task created", task)
	}
}

func getTask(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := h.taskQuery(c)

		task, err := h.Tasks.GetTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "OK", projectOne(task, q.Projection))
	}
}

func replaceTask(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tasks.TaskRequest
		if err := bindBody(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		task, err := h.Tasks.ReplaceTask(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "Task updated", task)
	}
}

func deleteTask(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Tasks.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "Task deleted", nil)
	}
}

// User handlers

func listUsers(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := h.userQuery(c)

		if q.Count {
			count, err := h.Users.CountUsers(c.Request.Context(), q)
			if err != nil {
				h.fail(c, err)
				return
			}
			respond(c, http.StatusOK, "OK", count)
			return
		}

		list, err := h.Users.ListUsers(c.Request.Context(), q)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "OK", project(list, q.Projection))
	}
}

func createUser(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req users.UserRequest
		if err := bindBody(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		user, err := h.Users.CreateUser(c.Request.Context(), &req)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusCreated, "User created", user)
	}
}

func getUser(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := h.userQuery(c)

		user, err := h.Users.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "OK", projectOne(user, q.Projection))
	}
}

func replaceUser(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req users.UserRequest
		if err := bindBody(c, &req); err != nil {
			h.fail(c, err)
			return
		}

		user, err := h.Users.ReplaceUser(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "User updated", user)
	}
}

func deleteUser(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Users.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, "User deleted", nil)
	}
}
