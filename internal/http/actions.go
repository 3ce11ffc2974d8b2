package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/console"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/nav"
	"aircraftconsole/internal/web"
)

// ActionHandler serves the console's form posts. Each post runs one action flow and
// redirects back to its panel with the outcome as a flash.
type ActionHandler struct {
	S *Server
}

type confirmContent struct {
	Title  string
	Prompt string
	Action string
	Fields []option
	Back   string
}

// actionFunc runs one flow for the posted form.
type actionFunc func(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome

func (h *ActionHandler) Routes(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		panel   nav.Panel
		run     actionFunc
	}{
		{"work-orders", nav.WorkOrders, saveWorkOrder},
		{"work-orders/{id}/cancel", nav.WorkOrders, byID((*actions.Handlers).CancelWorkOrder)},
		{"assemble", nav.AssembleAircraft, assemble},
		{"produce", nav.ProducePart, produce},
		{"parts/{id}/recycle", nav.Parts, byID((*actions.Handlers).RecyclePart)},
		{"aircraft/{id}/recycle", nav.Aircraft, byID((*actions.Handlers).RecycleAircraft)},
		{"personnel/{id}", nav.Personnel, savePersonnel},
		{"personnel/{id}/delete", nav.Personnel, byID((*actions.Handlers).DeletePersonnel)},
		{"teams", nav.Teams, saveTeam},
		{"teams/{id}/delete", nav.Teams, byID((*actions.Handlers).DeleteTeam)},
	}
	for _, rt := range routes {
		mux.Handle("POST "+ActionsPrefix+rt.pattern, h.handle(rt.panel, rt.run))
	}
}

func (h *ActionHandler) handle(panel nav.Panel, run actionFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		target := panel
		// Recycling is offered from both part panels.
		if p, ok := nav.Parse(r.PostForm.Get("panel")); ok && p != nav.Dashboard {
			target = p
		}
		back := h.S.dashboardPath() + target.Fragment()
		loc := location.NewMemory(back, "", target.Fragment())
		confirm := &formConfirmer{form: r.PostForm}

		c, ctx, err := h.S.openConsole(w, r, loc, confirm)
		if err != nil {
			slog.Error("actions.open_console", "err", err)
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
		if !c.Store.Current().HasToken() {
			http.Redirect(w, r, location.LoginRedirect(pathOf(h.S.Config.Console.LoginPageURL), loc), http.StatusSeeOther)
			return
		}
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		out := run(ctx, c, r)
		if followRedirect(w, r, loc) {
			return
		}
		if out.Aborted && confirm.prompt != "" && r.PostForm.Get("confirmed") != "1" {
			h.renderConfirm(w, r, confirm.prompt, back)
			return
		}
		http.Redirect(w, r, back+flashQuery(out, r.PostForm), http.StatusSeeOther)
	})
}

// flashQuery carries the outcome to the panel. A failed save keeps its form open.
func flashQuery(out actions.Outcome, form url.Values) string {
	q := url.Values{}
	switch {
	case out.Err != "":
		q.Set("error", out.Err)
		if len(out.MissingParts) > 0 {
			q["missing"] = out.MissingParts
		}
		if id := form.Get("id"); id != "" && form.Has("edit_form") {
			q.Set("edit", id)
		} else if form.Has("edit_form") {
			q.Set("new", "1")
		}
	case out.Notice != "":
		q.Set("notice", out.Notice)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (h *ActionHandler) renderConfirm(w http.ResponseWriter, r *http.Request, prompt, back string) {
	content := confirmContent{Title: "Please confirm", Prompt: prompt, Action: r.URL.Path, Back: back}
	for k, vs := range r.PostForm {
		if k == "confirmed" {
			continue
		}
		for _, v := range vs {
			content.Fields = append(content.Fields, option{Value: v, Label: k})
		}
	}
	render(w, h.S.TPL, "confirm", web.Page[confirmContent]{Content: content})
}

func byID(fn func(*actions.Handlers, context.Context, string) actions.Outcome) actionFunc {
	return func(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
		return fn(c.Actions, ctx, r.PathValue("id"))
	}
}

func formInt(form url.Values, key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(form.Get(key)))
	return n
}

// formOptInt is nil for an empty or unparsable value.
func formOptInt(form url.Values, key string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(form.Get(key)))
	if err != nil {
		return nil
	}
	return &n
}

func saveWorkOrder(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
	f := r.PostForm
	return c.Actions.SaveWorkOrder(ctx, actions.WorkOrderForm{
		ID:            strings.TrimSpace(f.Get("id")),
		AircraftModel: formInt(f, "aircraft_model"),
		Quantity:      formInt(f, "quantity"),
		AssignedTeam:  formOptInt(f, "assigned_team"),
		TargetDate:    strings.TrimSpace(f.Get("target_date")),
		Notes:         f.Get("notes"),
	})
}

func assemble(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
	return c.Actions.Assemble(ctx, actions.AssembleForm{
		AircraftModel: formInt(r.PostForm, "aircraft_model"),
		WorkOrder:     formOptInt(r.PostForm, "work_order"),
	})
}

func produce(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
	return c.Actions.Produce(ctx, actions.ProduceForm{AircraftModel: formInt(r.PostForm, "aircraft_model")})
}

func savePersonnel(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
	return c.Actions.SavePersonnel(ctx, actions.PersonnelForm{
		UserID: r.PathValue("id"),
		Team:   formOptInt(r.PostForm, "team"),
	})
}

func saveTeam(ctx context.Context, c *console.Console, r *http.Request) actions.Outcome {
	return c.Actions.SaveTeam(ctx, actions.TeamForm{
		ID:       strings.TrimSpace(r.PostForm.Get("id")),
		Name:     strings.TrimSpace(r.PostForm.Get("name")),
		TeamType: r.PostForm.Get("team_type"),
	})
}
