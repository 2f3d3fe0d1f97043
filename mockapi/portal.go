package mockapi

import (
	"net/http"
	"sort"

	"github.com/celestia-astro/astroprobe/servicedef"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (a *API) profileOf(u *user) servicedef.Profile {
	return servicedef.Profile{
		ID:        u.id,
		Email:     u.email,
		Name:      u.name,
		Role:      u.role,
		BirthInfo: u.birthInfo,
	}
}

func (a *API) profile(w http.ResponseWriter, _ *http.Request, u *user) {
	a.lock.Lock()
	p := a.profileOf(u)
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (a *API) birthChart(w http.ResponseWriter, _ *http.Request, u *user) {
	a.lock.Lock()
	defer a.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"birthInfo": u.birthInfo,
		"chart":     u.chart,
	})
}

func (a *API) userSessions(w http.ResponseWriter, _ *http.Request, u *user) {
	a.lock.Lock()
	ret := a.sessionsMatchingLocked(func(s servicedef.Session) bool { return s.UserID == u.email })
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) userNotes(w http.ResponseWriter, _ *http.Request, u *user) {
	a.lock.Lock()
	notes := servicedef.Notes{
		Personal: u.notes,
		Admin:    append(make([]servicedef.AdminNote, 0, len(u.adminNote)), u.adminNote...),
	}
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, notes)
}

func (a *API) saveNotes(w http.ResponseWriter, req *http.Request, u *user) {
	var params servicedef.SaveNotesParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.lock.Lock()
	u.notes = params.Notes
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) generateBirthChart(w http.ResponseWriter, req *http.Request, u *user) {
	a.generateChartFor(w, req, u)
}

// generateChartFor computes a chart from the birth information in the request body, or
// the user's stored birth information if the body has none, and stores it on the user.
func (a *API) generateChartFor(w http.ResponseWriter, req *http.Request, u *user) {
	var params servicedef.ChartRequestParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	info := servicedef.BirthInfo{
		BirthDate:  params.BirthDate,
		BirthTime:  params.BirthTime,
		BirthPlace: params.BirthPlace,
	}
	if info.BirthDate == "" && u.birthInfo != nil {
		info = *u.birthInfo
	}
	chart, err := computeChart(u.id, info, a.opts.Now())
	if err == errBirthInfoRequired {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid birth date or time")
		return
	}
	if u.birthInfo == nil {
		u.birthInfo = &info
	}
	u.chart = &chart
	writeJSON(w, http.StatusOK, chart)
}

func (a *API) adminStats(w http.ResponseWriter, _ *http.Request, _ *user) {
	a.lock.Lock()
	stats := servicedef.AdminStats{
		TotalUsers:    len(a.users),
		TotalSessions: len(a.sessions),
	}
	for _, s := range a.sessions {
		if s.Status == servicedef.SessionStatusPending {
			stats.PendingSession++
		}
		if s.PaymentStatus == servicedef.PaymentStatusPaid {
			stats.TotalRevenue += s.Amount
		}
	}
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) adminUsers(w http.ResponseWriter, _ *http.Request, _ *user) {
	a.lock.Lock()
	users := make([]*user, 0, len(a.users))
	for _, u := range a.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].createdAt.Equal(users[j].createdAt) {
			return users[i].email < users[j].email
		}
		return users[i].createdAt.After(users[j].createdAt)
	})
	ret := make([]servicedef.Profile, 0, len(users))
	for _, u := range users {
		ret = append(ret, a.profileOf(u))
	}
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) adminSessions(w http.ResponseWriter, _ *http.Request, _ *user) {
	a.lock.Lock()
	ret := a.sessionsMatchingLocked(func(servicedef.Session) bool { return true })
	a.lock.Unlock()
	writeJSON(w, http.StatusOK, ret)
}

// adminRevenue totals paid sessions per calendar month, oldest month first.
func (a *API) adminRevenue(w http.ResponseWriter, _ *http.Request, _ *user) {
	a.lock.Lock()
	byMonth := make(map[string]*servicedef.RevenueEntry)
	for _, s := range a.sessions {
		if s.PaymentStatus != servicedef.PaymentStatusPaid {
			continue
		}
		month := s.CreatedAt.UTC().Format("2006-01")
		e := byMonth[month]
		if e == nil {
			e = &servicedef.RevenueEntry{Month: month}
			byMonth[month] = e
		}
		e.Amount += s.Amount
		e.Sessions++
	}
	a.lock.Unlock()
	ret := make([]servicedef.RevenueEntry, 0, len(byMonth))
	for _, e := range byMonth {
		ret = append(ret, *e)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Month < ret[j].Month })
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) userByID(id string) *user {
	for _, u := range a.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func (a *API) adminGenerateChart(w http.ResponseWriter, req *http.Request, _ *user) {
	a.lock.Lock()
	target := a.userByID(req.PathValue("userId"))
	a.lock.Unlock()
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	a.generateChartFor(w, req, target)
}

func (a *API) publishNote(w http.ResponseWriter, req *http.Request, _ *user) {
	var params servicedef.PublishNoteParams
	if err := readJSON(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if params.UserID == "" || params.Content == "" {
		writeError(w, http.StatusBadRequest, "userId and content are required")
		return
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	target := a.userByID(params.UserID)
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	note := servicedef.AdminNote{
		ID:        primitive.NewObjectID().Hex(),
		Title:     params.Title,
		Content:   params.Content,
		CreatedAt: a.opts.Now(),
	}
	target.adminNote = append(target.adminNote, note)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "noteId": note.ID})
}
