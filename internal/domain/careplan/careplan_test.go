package careplan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/domain/patient"
	"github.com/leo-oli/social-care-omaha/internal/domain/problem"
	"github.com/leo-oli/social-care-omaha/internal/domain/taxonomy"
	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

type fakePatientRepo struct {
	patients map[int64]*patient.Patient
	noteIDs  map[int64]string
}

func (m *fakePatientRepo) Create(_ context.Context, _ *patient.Patient) error { return nil }

func (m *fakePatientRepo) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *fakePatientRepo) GetAnyByID(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *fakePatientRepo) ListActive(_ context.Context) ([]*patient.Patient, error) { return nil, nil }

func (m *fakePatientRepo) SoftDelete(_ context.Context, _ int64) error { return nil }

func (m *fakePatientRepo) SetNoteID(_ context.Context, id int64, noteID string) error {
	m.noteIDs[id] = noteID
	if p, ok := m.patients[id]; ok {
		p.GroupOfficeNoteID = &noteID
	}
	return nil
}

func (m *fakePatientRepo) Touch(_ context.Context, _ int64) error { return nil }

type fakeVault struct {
	records map[int64]*patient.PII
}

func (m *fakeVault) Create(_ context.Context, _ *patient.PII) error { return nil }

func (m *fakeVault) Get(_ context.Context, patientID int64) (*patient.PII, error) {
	r, ok := m.records[patientID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *fakeVault) Update(_ context.Context, _ *patient.PII) error { return nil }

func (m *fakeVault) FindTIN(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *fakeVault) Scrub(_ context.Context, _ int64) error { return nil }

type fakeProblemRepo struct {
	problems      []*problem.PatientProblem
	symptoms      []*problem.ProblemSymptom
	scores        []*problem.OutcomeScore
	interventions []*problem.CareIntervention
}

func (m *fakeProblemRepo) Create(_ context.Context, _ *problem.PatientProblem) error { return nil }

func (m *fakeProblemRepo) GetByID(_ context.Context, id int64) (*problem.PatientProblem, error) {
	for _, p := range m.problems {
		if p.ID == id && p.DeletedAt == nil {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *fakeProblemRepo) ListActive(_ context.Context, patientID int64) ([]*problem.PatientProblem, error) {
	var out []*problem.PatientProblem
	for _, p := range m.problems {
		if p.PatientID == patientID && p.IsActive && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *fakeProblemRepo) ListHistory(_ context.Context, _ int64) ([]*problem.PatientProblem, error) {
	return nil, nil
}
func (m *fakeProblemRepo) SetActive(_ context.Context, _ int64, _ bool) error { return nil }
func (m *fakeProblemRepo) SoftDelete(_ context.Context, _ int64) error        { return nil }

func (m *fakeProblemRepo) AddSymptom(_ context.Context, _ *problem.ProblemSymptom) error { return nil }

func (m *fakeProblemRepo) FindSymptom(_ context.Context, _, _ int64) (*problem.ProblemSymptom, error) {
	return nil, pgx.ErrNoRows
}

func (m *fakeProblemRepo) ListSymptoms(_ context.Context, problemID int64) ([]*problem.ProblemSymptom, error) {
	var out []*problem.ProblemSymptom
	for _, s := range m.symptoms {
		if s.PatientProblemID == problemID && s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *fakeProblemRepo) InsertScore(_ context.Context, _ *problem.OutcomeScore) error { return nil }

func (m *fakeProblemRepo) ListScores(_ context.Context, _ int64) ([]*problem.OutcomeScore, error) {
	return nil, nil
}

func (m *fakeProblemRepo) LatestScore(_ context.Context, problemID int64) (*problem.OutcomeScore, error) {
	var best *problem.OutcomeScore
	for _, s := range m.scores {
		if s.PatientProblemID != problemID {
			continue
		}
		if best == nil || s.DateRecorded.After(best.DateRecorded) ||
			(s.DateRecorded.Equal(best.DateRecorded) && s.ID > best.ID) {
			best = s
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best, nil
}

func (m *fakeProblemRepo) InsertIntervention(_ context.Context, _ *problem.CareIntervention) error {
	return nil
}

func (m *fakeProblemRepo) ListInterventions(_ context.Context, problemID int64) ([]*problem.CareIntervention, error) {
	var out []*problem.CareIntervention
	for _, iv := range m.interventions {
		if iv.PatientProblemID == problemID {
			out = append(out, iv)
		}
	}
	// Newest first, which is what the real repository guarantees.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].DatePerformed.After(out[i].DatePerformed) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type fakeTaxonomyRepo struct{}

func (fakeTaxonomyRepo) ListDomains(_ context.Context) ([]*taxonomy.Domain, error) { return nil, nil }
func (fakeTaxonomyRepo) ListProblemsByDomain(_ context.Context, _ int64) ([]*taxonomy.Problem, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListSymptomsByProblem(_ context.Context, _ int64) ([]*taxonomy.Symptom, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListModifierDomains(_ context.Context) ([]*taxonomy.ModifierDomain, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListModifierTypes(_ context.Context) ([]*taxonomy.ModifierType, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListInterventionCategories(_ context.Context) ([]*taxonomy.InterventionCategory, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListInterventionTargets(_ context.Context) ([]*taxonomy.InterventionTarget, error) {
	return nil, nil
}
func (fakeTaxonomyRepo) ListOutcomePhases(_ context.Context) ([]*taxonomy.OutcomePhase, error) {
	return nil, nil
}

func (fakeTaxonomyRepo) GetProblem(_ context.Context, id int64) (*taxonomy.Problem, error) {
	if id == 4 {
		return &taxonomy.Problem{ID: 4, DomainID: 3, Name: "Pain"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetSymptom(_ context.Context, id int64) (*taxonomy.Symptom, error) {
	if id == 10 {
		return &taxonomy.Symptom{ID: 10, ProblemID: 4, Description: "Reports pain"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetModifierDomain(_ context.Context, id int64) (*taxonomy.ModifierDomain, error) {
	if id == 1 {
		return &taxonomy.ModifierDomain{ID: 1, Name: "Individual"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetModifierType(_ context.Context, id int64) (*taxonomy.ModifierType, error) {
	if id == 1 {
		return &taxonomy.ModifierType{ID: 1, Name: "Actual"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetInterventionCategory(_ context.Context, id int64) (*taxonomy.InterventionCategory, error) {
	if id == 1 {
		return &taxonomy.InterventionCategory{ID: 1, Name: "Teaching Guidance and Counseling"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetInterventionTarget(_ context.Context, id int64) (*taxonomy.InterventionTarget, error) {
	if id == 1 {
		return &taxonomy.InterventionTarget{ID: 1, Name: "Medication administration"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetOutcomePhase(_ context.Context, id int64) (*taxonomy.OutcomePhase, error) {
	if id == 1 {
		return &taxonomy.OutcomePhase{ID: 1, Name: "Admission"}, nil
	}
	return nil, pgx.ErrNoRows
}

func (fakeTaxonomyRepo) GetRatingLabel(_ context.Context, dim taxonomy.RatingDimension, rating int) (*taxonomy.RatingLabel, error) {
	labels := map[taxonomy.RatingDimension][]string{
		taxonomy.RatingKnowledge: {"No knowledge", "Minimal knowledge", "Basic knowledge", "Adequate knowledge", "Superior knowledge"},
		taxonomy.RatingBehavior:  {"Not appropriate behavior", "Rarely appropriate behavior", "Inconsistently appropriate behavior", "Usually appropriate behavior", "Consistently appropriate behavior"},
		taxonomy.RatingStatus:    {"Extreme signs/symptoms", "Severe signs/symptoms", "Moderate signs/symptoms", "Minimal signs/symptoms", "No signs/symptoms"},
	}
	scale, ok := labels[dim]
	if !ok || rating < 1 || rating > 5 {
		return nil, pgx.ErrNoRows
	}
	return &taxonomy.RatingLabel{Dimension: dim, Rating: rating, Label: scale[rating-1]}, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

func strptr(s string) *string { return &s }

// janeDoe builds a record with one active Pain problem, one symptom, one
// score and one intervention.
func janeDoe() (*fakePatientRepo, *fakeVault, *fakeProblemRepo) {
	patients := &fakePatientRepo{
		patients: map[int64]*patient.Patient{1: {ID: 1, PublicID: uuid.New(), IsActive: true}},
		noteIDs:  map[int64]string{},
	}
	vault := &fakeVault{records: map[int64]*patient.PII{1: {
		PatientID:   1,
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1985-03-12",
		TIN:         "12345678901",
		PhoneNumber: strptr("555-0101"),
		Address:     strptr("1 Main St"),
	}}}
	problems := &fakeProblemRepo{
		problems: []*problem.PatientProblem{{
			ID: 7, PatientID: 1, ProblemID: 4, ModifierDomainID: 1, ModifierTypeID: 1, IsActive: true,
		}},
		symptoms: []*problem.ProblemSymptom{{ID: 1, PatientProblemID: 7, SymptomID: 10}},
		scores: []*problem.OutcomeScore{{
			ID: 1, PatientProblemID: 7, PhaseID: 1,
			KnowledgeRating: 3, BehaviorRating: 2, StatusRating: 4,
			DateRecorded: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		}},
		interventions: []*problem.CareIntervention{{
			ID: 1, PatientProblemID: 7, CategoryID: 1, TargetID: 1,
			Details:       strptr("administered analgesic"),
			DatePerformed: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}},
	}
	return patients, vault, problems
}

func newComposer(patients *fakePatientRepo, vault *fakeVault, problems *fakeProblemRepo) *Composer {
	tax := taxonomy.NewService(fakeTaxonomyRepo{})
	return NewComposer(patients, vault, problems, tax, passthroughTx, zerolog.Nop())
}

func TestCompose_NotFound(t *testing.T) {
	patients, vault, problems := janeDoe()
	c := newComposer(patients, vault, problems)
	if _, err := c.Compose(context.Background(), 42); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompose_SkipsDanglingTaxonomy(t *testing.T) {
	patients, vault, problems := janeDoe()
	problems.problems = append(problems.problems, &problem.PatientProblem{
		ID: 8, PatientID: 1, ProblemID: 999, ModifierDomainID: 1, ModifierTypeID: 1, IsActive: true,
	})
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(snap.ActiveProblems) != 1 {
		t.Fatalf("dangling reference should be skipped, got %d entries", len(snap.ActiveProblems))
	}
}

func TestCompose_LatestScoreSelection(t *testing.T) {
	patients, vault, problems := janeDoe()
	problems.scores = append(problems.scores, &problem.OutcomeScore{
		ID: 2, PatientProblemID: 7, PhaseID: 1,
		KnowledgeRating: 5, BehaviorRating: 5, StatusRating: 5,
		DateRecorded: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	o := snap.ActiveProblems[0].LatestOutcome
	if o == nil || o.Scores.Knowledge != 3 {
		t.Fatalf("latest outcome should be the February score, got %+v", o)
	}
	if o.Phase != "Admission" {
		t.Errorf("phase = %q", o.Phase)
	}
}

func TestRenderText_EndToEnd(t *testing.T) {
	patients, vault, problems := janeDoe()
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	text := RenderText(snap)

	wantLines := []string{
		"OMAHA SYSTEM CARE PLAN SUMMARY",
		"Patient: Jane Doe",
		"DOB: 1985-03-12",
		"TIN: 12345678901",
		"PROBLEM 1: Pain (Type: Actual, Domain: Individual)",
		"  Symptoms: Reports pain",
		"  Latest Outcome:",
		"    - Knowledge: Basic knowledge (Rating: 3/5)",
		"    - Behavior:  Rarely appropriate behavior (Rating: 2/5)",
		"    - Status:    Minimal signs/symptoms (Rating: 4/5)",
		"  Interventions:",
		"    - 2024-01-15: Teaching Guidance and Counseling - Medication administration (administered analgesic)",
	}
	pos := 0
	for _, want := range wantLines {
		idx := strings.Index(text[pos:], want)
		if idx < 0 {
			t.Fatalf("missing or out-of-order line %q in:\n%s", want, text)
		}
		pos += idx + len(want)
	}
}

func TestRenderText_Placeholders(t *testing.T) {
	patients, vault, problems := janeDoe()
	problems.scores = nil
	problems.interventions = nil
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	text := RenderText(snap)
	if !strings.Contains(text, "  Latest Outcome: None recorded") {
		t.Error("missing outcome placeholder")
	}
	if !strings.Contains(text, "  Interventions: None recorded") {
		t.Error("missing interventions placeholder")
	}
}

func TestRenderText_InterventionLimit(t *testing.T) {
	patients, vault, problems := janeDoe()
	problems.interventions = nil
	for i := 0; i < 7; i++ {
		problems.interventions = append(problems.interventions, &problem.CareIntervention{
			ID: int64(i + 1), PatientProblemID: 7, CategoryID: 1, TargetID: 1,
			DatePerformed: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
	}
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(snap.ActiveProblems[0].AllInterventions); n != 7 {
		t.Fatalf("snapshot should keep all interventions, got %d", n)
	}
	text := RenderText(snap)
	if got := strings.Count(text, "    - 2024-01-"); got != 5 {
		t.Errorf("text report should show 5 interventions, shows %d", got)
	}
}

func TestRenderJSON_Structure(t *testing.T) {
	patients, vault, problems := janeDoe()
	c := newComposer(patients, vault, problems)
	snap, err := c.Compose(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := RenderJSON(snap)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Patient struct {
			Name string `json:"name"`
			TIN  string `json:"tin"`
		} `json:"patient"`
		GeneratedAt    time.Time `json:"generated_at"`
		ActiveProblems []struct {
			ProblemName   string `json:"problem_name"`
			LatestOutcome *struct {
				Knowledge string `json:"knowledge"`
				Scores    struct {
					Knowledge int `json:"knowledge"`
				} `json:"scores"`
			} `json:"latest_outcome"`
		} `json:"active_problems"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Patient.Name != "Jane Doe" || doc.Patient.TIN != "12345678901" {
		t.Errorf("patient header = %+v", doc.Patient)
	}
	if len(doc.ActiveProblems) != 1 || doc.ActiveProblems[0].ProblemName != "Pain" {
		t.Fatalf("problems = %+v", doc.ActiveProblems)
	}
	o := doc.ActiveProblems[0].LatestOutcome
	if o == nil || o.Knowledge != "Basic knowledge" || o.Scores.Knowledge != 3 {
		t.Errorf("latest outcome = %+v", o)
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	got := ExportFilename("Jane Doe", at, "txt")
	if got != "CarePlan_Jane-Doe_2024-03-05_14-30.txt" {
		t.Errorf("filename = %q", got)
	}
	got = ExportFilename(`J/a\n:e *Doe`, at, "json")
	if got != "CarePlan_Jane-Doe_2024-03-05_14-30.json" {
		t.Errorf("sanitized filename = %q", got)
	}
}

type fakeSyncer struct {
	configured bool
	created    map[string]string
	updated    map[string]string
	fail       bool
	nextID     int
}

func (f *fakeSyncer) Configured() bool { return f.configured }

func (f *fakeSyncer) CreateNote(_ context.Context, title, content string) (string, error) {
	if f.fail {
		return "", errs.Gateway(nil, "group office unavailable")
	}
	f.nextID++
	id := "note-" + strconv.Itoa(f.nextID)
	f.created[id] = title + "\n" + content
	return id, nil
}

func (f *fakeSyncer) UpdateNote(_ context.Context, noteID, title, content string) error {
	if f.fail {
		return errs.Gateway(nil, "group office unavailable")
	}
	f.updated[noteID] = title + "\n" + content
	return nil
}

type fakeRecorder struct{ patients *fakePatientRepo }

func (f *fakeRecorder) RecordNoteID(ctx context.Context, patientID int64, noteID string) error {
	return f.patients.SetNoteID(ctx, patientID, noteID)
}

func exportRequest(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/patients/:id/export")
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Export(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestExport_InvalidSelectors(t *testing.T) {
	patients, vault, problems := janeDoe()
	h := NewHandler(newComposer(patients, vault, problems), &fakeSyncer{}, &fakeRecorder{patients: patients})

	rec := exportRequest(t, h, "/patients/1/export?format=xml")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad format: status = %d", rec.Code)
	}
	rec = exportRequest(t, h, "/patients/1/export?destination=email")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad destination: status = %d", rec.Code)
	}
}

func TestExport_Download(t *testing.T) {
	patients, vault, problems := janeDoe()
	h := NewHandler(newComposer(patients, vault, problems), &fakeSyncer{}, &fakeRecorder{patients: patients})

	rec := exportRequest(t, h, "/patients/1/export?format=text&destination=download")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	cd := rec.Header().Get(echo.HeaderContentDisposition)
	if !strings.HasPrefix(cd, `attachment; filename="CarePlan_Jane-Doe_`) || !strings.HasSuffix(cd, `.txt"`) {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "OMAHA SYSTEM CARE PLAN SUMMARY") {
		t.Error("body is not the text report")
	}
}

func TestExport_SyncCreateThenUpdate(t *testing.T) {
	patients, vault, problems := janeDoe()
	syncer := &fakeSyncer{configured: true, created: map[string]string{}, updated: map[string]string{}}
	h := NewHandler(newComposer(patients, vault, problems), syncer, &fakeRecorder{patients: patients})

	rec := exportRequest(t, h, "/patients/1/export?format=text&destination=sync")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first sync: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(syncer.created) != 1 {
		t.Fatalf("expected one created note, got %d", len(syncer.created))
	}
	noteID, ok := patients.noteIDs[1]
	if !ok {
		t.Fatal("note id was not persisted on the patient")
	}

	rec = exportRequest(t, h, "/patients/1/export?format=text&destination=sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("second sync: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, ok := syncer.updated[noteID]; !ok {
		t.Errorf("second sync should update note %s, updated = %v", noteID, syncer.updated)
	}
	if len(syncer.created) != 1 {
		t.Errorf("second sync must not create another note")
	}
	for _, body := range syncer.created {
		if !strings.HasPrefix(body, "Care Plan: Jane Doe\n") {
			t.Errorf("note title line = %q", strings.SplitN(body, "\n", 2)[0])
		}
	}
}

func TestExport_SyncGatewayFailure(t *testing.T) {
	patients, vault, problems := janeDoe()
	syncer := &fakeSyncer{configured: true, created: map[string]string{}, updated: map[string]string{}, fail: true}
	h := NewHandler(newComposer(patients, vault, problems), syncer, &fakeRecorder{patients: patients})

	rec := exportRequest(t, h, "/patients/1/export?destination=sync")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, ok := patients.noteIDs[1]; ok {
		t.Error("failed sync must not persist a note id")
	}
}
