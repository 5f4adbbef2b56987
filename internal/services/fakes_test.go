package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/inference"
	"farmfi-backend/internal/models"
)

// fakeFieldStore keeps fields in memory.
type fakeFieldStore struct {
	mu     sync.Mutex
	next   int
	fields map[int]*models.Field
	logs   []*models.ApprovalLog
	// occupied reports planted area per crop year; set by newFakeCropStore
	occupied func(fieldID int) map[int]float64
}

func newFakeFieldStore() *fakeFieldStore {
	return &fakeFieldStore{fields: map[int]*models.Field{}}
}

// add inserts a field directly, bypassing validation.
func (s *fakeFieldStore) add(farmerID int, area float64) *models.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	f := &models.Field{ID: s.next, FarmerID: farmerID, FieldName: "plot", Area: area, MandalID: 1, VillageID: 1,
		Status: models.StatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.fields[f.ID] = f
	return s.copy(f)
}

func (s *fakeFieldStore) copy(f *models.Field) *models.Field {
	c := *f
	return &c
}

func (s *fakeFieldStore) Create(_ context.Context, f *models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	f.ID = s.next
	f.Status = models.StatusPending
	f.CreatedAt, f.UpdatedAt = time.Now(), time.Now()
	s.fields[f.ID] = s.copy(f)
	return nil
}

func (s *fakeFieldStore) Get(_ context.Context, id int) (*models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, apperr.NotFound("field not found")
	}
	return s.copy(f), nil
}

func (s *fakeFieldStore) List(_ context.Context, filter models.FieldFilter) ([]*models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Field{}
	for _, f := range s.fields {
		if filter.FarmerID > 0 && f.FarmerID != filter.FarmerID {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, s.copy(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeFieldStore) Update(_ context.Context, f *models.Field, check models.AreaCheck) error {
	occupied := map[int]float64{}
	if s.occupied != nil {
		occupied = s.occupied(f.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.fields[f.ID]
	if !ok || cur.Verified {
		return apperr.NotFound("field not found or already verified")
	}
	if err := check(s.copy(cur), occupied); err != nil {
		return err
	}
	cur.FieldName, cur.Area, cur.Latitude, cur.Longitude = f.FieldName, f.Area, f.Latitude, f.Longitude
	cur.MandalID, cur.VillageID = f.MandalID, f.VillageID
	if cur.Status == models.StatusRejected {
		cur.Status = models.StatusPending
	}
	cur.RejectionReason = ""
	f.Status = cur.Status
	return nil
}

func (s *fakeFieldStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok || f.Verified {
		return apperr.NotFound("field not found or already verified")
	}
	delete(s.fields, id)
	return nil
}

func (s *fakeFieldStore) Transition(_ context.Context, id int, from string, change models.StatusChange, l *models.ApprovalLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok || f.Status != from {
		return apperr.Conflict("field status changed, reload and retry")
	}
	f.Status, f.Verified, f.RejectionReason = change.Status, change.Verified, change.Reason
	if change.Approved {
		now := time.Now()
		f.ApprovalDate = &now
	}
	s.logs = append(s.logs, l)
	return nil
}

// fakeCropStore serializes checked writes with one mutex, standing in for
// the field row lock.
type fakeCropStore struct {
	mu      sync.Mutex
	next    int
	fields  *fakeFieldStore
	crops   map[int]*models.CropData
	catalog map[int]string
	logs    []*models.ApprovalLog
	writes  int
}

func newFakeCropStore(fields *fakeFieldStore) *fakeCropStore {
	s := &fakeCropStore{
		fields:  fields,
		crops:   map[int]*models.CropData{},
		catalog: map[int]string{1: "Paddy", 2: "Cotton", 3: "Tomato"},
	}
	fields.occupied = s.occupiedByYear
	return s
}

func (s *fakeCropStore) occupiedByYear(fieldID int) map[int]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]float64{}
	for _, c := range s.crops {
		if c.FieldID == fieldID && c.Status != models.StatusRejected {
			out[c.CropYear] += c.Area
		}
	}
	return out
}

func (s *fakeCropStore) decorate(c *models.CropData) *models.CropData {
	out := *c
	out.CropName = s.catalog[c.CropID]
	if f, err := s.fields.Get(context.Background(), c.FieldID); err == nil {
		out.FieldName = f.FieldName
		out.FarmerID = f.FarmerID
	}
	return &out
}

func (s *fakeCropStore) active(fieldID, year, exclude int) []*models.CropData {
	out := []*models.CropData{}
	ids := make([]int, 0, len(s.crops))
	for id := range s.crops {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c := s.crops[id]
		if c.FieldID == fieldID && c.CropYear == year && c.Status != models.StatusRejected && c.ID != exclude {
			out = append(out, s.decorate(c))
		}
	}
	return out
}

func (s *fakeCropStore) CreateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, err := s.fields.Get(ctx, c.FieldID)
	if err != nil {
		return err
	}
	if err := check(field, s.active(c.FieldID, c.CropYear, 0)); err != nil {
		return err
	}
	s.next++
	c.ID = s.next
	c.Status = models.StatusPending
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	stored := *c
	s.crops[c.ID] = &stored
	s.writes++
	return nil
}

func (s *fakeCropStore) UpdateChecked(ctx context.Context, c *models.CropData, check models.LandCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, err := s.fields.Get(ctx, c.FieldID)
	if err != nil {
		return err
	}
	cur, ok := s.crops[c.ID]
	if !ok {
		return apperr.NotFound("crop record not found")
	}
	if cur.Verified {
		return apperr.Forbidden("verified crop records cannot be modified")
	}
	if err := check(field, s.active(c.FieldID, c.CropYear, c.ID)); err != nil {
		return err
	}
	cur.CropID, cur.CropYear, cur.Season, cur.Area = c.CropID, c.CropYear, c.Season, c.Area
	cur.Production, cur.Yield = c.Production, c.Yield
	if cur.Status == models.StatusRejected {
		cur.Status = models.StatusPending
	}
	cur.RejectionReason = ""
	c.Status = cur.Status
	s.writes++
	return nil
}

func (s *fakeCropStore) Get(_ context.Context, id int) (*models.CropData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.crops[id]
	if !ok {
		return nil, apperr.NotFound("crop record not found")
	}
	return s.decorate(c), nil
}

func (s *fakeCropStore) List(_ context.Context, filter models.CropDataFilter) ([]*models.CropData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.CropData{}
	for _, c := range s.crops {
		d := s.decorate(c)
		if filter.FarmerID > 0 && d.FarmerID != filter.FarmerID {
			continue
		}
		if filter.FieldID > 0 && d.FieldID != filter.FieldID {
			continue
		}
		if filter.CropYear > 0 && d.CropYear != filter.CropYear {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeCropStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.crops[id]
	if !ok || c.Verified {
		return apperr.NotFound("crop record not found or already verified")
	}
	delete(s.crops, id)
	return nil
}

func (s *fakeCropStore) Transition(_ context.Context, id int, from string, change models.StatusChange, l *models.ApprovalLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.crops[id]
	if !ok || c.Status != from {
		return apperr.Conflict("crop record status changed, reload and retry")
	}
	c.Status, c.Verified, c.RejectionReason = change.Status, change.Verified, change.Reason
	s.logs = append(s.logs, l)
	return nil
}

func (s *fakeCropStore) ActiveForField(_ context.Context, fieldID, cropYear int) ([]*models.CropData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(fieldID, cropYear, 0), nil
}

func (s *fakeCropStore) CropIDByName(_ context.Context, name string) (int, error) {
	for id, n := range s.catalog {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return id, nil
		}
	}
	return 0, apperr.NotFound("unknown crop \"" + name + "\"")
}

func (s *fakeCropStore) CropExists(_ context.Context, id int) (bool, error) {
	_, ok := s.catalog[id]
	return ok, nil
}

func (s *fakeCropStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.crops)
}

// fakeLocations accepts village v in mandal m when v/10 == m.
type fakeLocations struct{}

func (fakeLocations) ListMandals(context.Context) ([]models.Mandal, error) {
	return []models.Mandal{{ID: 1, Name: "Kurnool", Villages: []models.Village{{ID: 10, Name: "Pasupula", MandalID: 1}}}}, nil
}

func (fakeLocations) VillageInMandal(_ context.Context, mandalID, villageID int) (bool, error) {
	return villageID/10 == mandalID, nil
}

func (fakeLocations) ListCrops(context.Context) ([]models.Crop, error) {
	return []models.Crop{{ID: 1, Name: "Paddy"}}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (n *recordingNotifier) Publish(ev models.StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type fakeFarmerStore struct {
	mu      sync.Mutex
	farmers map[int]*models.Farmer
}

func newFakeFarmerStore() *fakeFarmerStore {
	return &fakeFarmerStore{farmers: map[int]*models.Farmer{}}
}

func (s *fakeFarmerStore) Create(_ context.Context, f *models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.farmers {
		if x.Phone == f.Phone {
			return apperr.Validation("phone number already registered")
		}
	}
	f.ID = len(s.farmers) + 1
	f.Role = models.RoleFarmer
	c := *f
	s.farmers[f.ID] = &c
	return nil
}

func (s *fakeFarmerStore) Get(_ context.Context, id int) (*models.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.farmers[id]
	if !ok {
		return nil, apperr.NotFound("farmer not found")
	}
	c := *f
	return &c, nil
}

func (s *fakeFarmerStore) GetByPhone(_ context.Context, phone string) (*models.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.farmers {
		if f.Phone == phone {
			c := *f
			return &c, nil
		}
	}
	return nil, apperr.NotFound("farmer not found")
}

func (s *fakeFarmerStore) UpdateProfile(_ context.Context, f *models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *f
	s.farmers[f.ID] = &c
	return nil
}

func (s *fakeFarmerStore) UpdatePassword(_ context.Context, id int, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farmers[id].PasswordHash = hash
	return nil
}

type fakeStaffStore struct {
	mu    sync.Mutex
	staff map[string]map[int]*models.Staff
}

func newFakeStaffStore() *fakeStaffStore {
	return &fakeStaffStore{staff: map[string]map[int]*models.Staff{
		models.RoleEmployee: {},
		models.RoleAdmin:    {},
	}}
}

func (s *fakeStaffStore) Create(_ context.Context, st *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.staff[st.Role]
	for _, x := range table {
		if x.Username == st.Username {
			return apperr.Validation("username already exists")
		}
	}
	st.ID = len(table) + 1
	c := *st
	table[st.ID] = &c
	return nil
}

func (s *fakeStaffStore) Get(_ context.Context, role string, id int) (*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.staff[role][id]
	if !ok {
		return nil, apperr.NotFound(role + " not found")
	}
	c := *st
	return &c, nil
}

func (s *fakeStaffStore) GetByUsername(_ context.Context, role, username string) (*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.staff[role] {
		if st.Username == username {
			c := *st
			return &c, nil
		}
	}
	return nil, apperr.NotFound(role + " not found")
}

func (s *fakeStaffStore) List(_ context.Context, role string) ([]*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Staff{}
	for _, st := range s.staff[role] {
		c := *st
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStaffStore) UpdateProfile(_ context.Context, st *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[st.Role][st.ID].Name = st.Name
	return nil
}

func (s *fakeStaffStore) UpdatePassword(_ context.Context, role string, id int, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[role][id].PasswordHash = hash
	return nil
}

func (s *fakeStaffStore) SaveTOTPSecret(_ context.Context, adminID int, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.staff[models.RoleAdmin][adminID]
	a.TOTPSecret, a.TOTPEnabled = secret, false
	return nil
}

func (s *fakeStaffStore) SetTOTPEnabled(_ context.Context, adminID int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.staff[models.RoleAdmin][adminID]
	a.TOTPEnabled = enabled
	if !enabled {
		a.TOTPSecret = ""
	}
	return nil
}

type fakeLoginLogs struct {
	mu   sync.Mutex
	logs []*models.LoginLog
}

func (s *fakeLoginLogs) CreateLoginLog(_ context.Context, l *models.LoginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

type fakeImageStore struct {
	mu         sync.Mutex
	images     []*models.FieldImage
	detections []*models.DiseaseDetection
	fields     *fakeFieldStore
	err        error
}

func (s *fakeImageStore) CreateWithDetection(_ context.Context, img *models.FieldImage, d *models.DiseaseDetection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	img.ID = len(s.images) + 1
	d.ImageID = img.ID
	d.ID = len(s.detections) + 1
	d.CreatedAt = time.Now()
	s.images = append(s.images, img)
	s.detections = append(s.detections, d)
	return nil
}

func (s *fakeImageStore) ListByFarmer(ctx context.Context, farmerID int) ([]*models.DiseaseDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.DiseaseDetection{}
	for _, d := range s.detections {
		if f, err := s.fields.Get(ctx, d.FieldID); err == nil && f.FarmerID == farmerID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeImageStore) GetImage(ctx context.Context, id int) (*models.FieldImage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id <= 0 || id > len(s.images) {
		return nil, 0, apperr.NotFound("image not found")
	}
	img := s.images[id-1]
	f, err := s.fields.Get(ctx, img.FieldID)
	if err != nil {
		return nil, 0, err
	}
	return img, f.FarmerID, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) Put(_ context.Context, key, _ string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return o.putErr
	}
	o.objects[key] = data
	return nil
}

func (o *fakeObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example.com/" + key + "?X-Amz-Expires=86400", nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	o.deleted = append(o.deleted, key)
	return nil
}

type fakePredictor struct {
	result *inference.Result
	err    error
	calls  int
	last   inference.Request
}

func (p *fakePredictor) Predict(_ context.Context, req inference.Request) (*inference.Result, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}
