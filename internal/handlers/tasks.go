package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/tropicaldog17/folio/internal/services"
)

// TaskHandler exposes queued background work.
type TaskHandler struct {
	tasks services.TaskRunner
}

func NewTaskHandler(tasks services.TaskRunner) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// TaskAccepted is returned for work that was queued but not awaited.
type TaskAccepted struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// HandleTask reports a task's state.
// @Summary Get a background task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} models.TaskInfo
// @Failure 404 {string} string "Not found"
// @Router /tasks/{id} [get]
func (h *TaskHandler) HandleTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, ok := h.tasks.Get(id)
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// submit queues fn and answers 202 with the task id. With ?wait=true it
// blocks until the task is done and answers with its final state, or with
// the task's error mapped to a status code.
func submit(w http.ResponseWriter, r *http.Request, tasks services.TaskRunner, kind string, fn services.TaskFunc) {
	var (
		mu     sync.Mutex
		runErr error
	)
	info := tasks.Submit(kind, func(ctx context.Context) (interface{}, error) {
		result, err := fn(ctx)
		mu.Lock()
		runErr = err
		mu.Unlock()
		return result, err
	})

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, TaskAccepted{TaskID: info.ID, Status: string(info.Status)})
		return
	}

	done, err := tasks.Wait(r.Context(), info.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	mu.Lock()
	failure := runErr
	mu.Unlock()
	if failure != nil {
		writeError(w, failure)
		return
	}
	if done.Error != "" {
		http.Error(w, done.Error, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, done)
}
