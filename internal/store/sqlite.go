package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"rialto/internal/model"
)

// SQLite is the Store implementation backing the engine in production.
// Each repository method is a single-record read or write; there is no
// cross-record transaction, mirroring the record store the engine targets.
type SQLite struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates the database at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS citizens (
		username TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		ducats INTEGER NOT NULL,
		pos_json TEXT,
		home_building TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		occupant TEXT NOT NULL DEFAULT '',
		run_by TEXT NOT NULL DEFAULT '',
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		rent_price INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		buyer TEXT NOT NULL DEFAULT '',
		seller TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		asset TEXT NOT NULL DEFAULT '',
		price_per_unit INTEGER NOT NULL,
		target_amount INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		end_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		citizen TEXT NOT NULL,
		from_building TEXT NOT NULL DEFAULT '',
		to_building TEXT NOT NULL DEFAULT '',
		from_pos_json TEXT,
		to_pos_json TEXT,
		path_json TEXT,
		status TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		depends_on TEXT NOT NULL DEFAULT '',
		detail_json TEXT,
		next_json TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stratagems (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		executor TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		params_json TEXT NOT NULL,
		state_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		payer TEXT NOT NULL,
		payee TEXT NOT NULL,
		amount INTEGER NOT NULL,
		asset TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'created',
		created_at TIMESTAMP NOT NULL,
		executed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		citizen TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		asset TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relationships (
		citizen_a TEXT NOT NULL,
		citizen_b TEXT NOT NULL,
		strength REAL NOT NULL,
		trust REAL NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (citizen_a, citizen_b)
	);

	CREATE INDEX IF NOT EXISTS idx_activities_due ON activities(status, end_time);
	CREATE INDEX IF NOT EXISTS idx_activities_citizen ON activities(citizen, status);
	CREATE INDEX IF NOT EXISTS idx_stratagems_status ON stratagems(status);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_citizen ON notifications(citizen);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// checkWrite converts a zero-row UPDATE into ErrNotFound.
func checkWrite(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Citizens ──────────────────────────────────────────────────────────

type citizenRow struct {
	Username     string    `db:"username"`
	Name         string    `db:"name"`
	Ducats       int64     `db:"ducats"`
	PosJSON      *string   `db:"pos_json"`
	HomeBuilding string    `db:"home_building"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s *SQLite) GetCitizen(username string) (*model.Citizen, error) {
	var row citizenRow
	err := s.conn.Get(&row, "SELECT * FROM citizens WHERE username = ?", username)
	if err != nil {
		return nil, notFound(err)
	}
	c := &model.Citizen{
		Username:     row.Username,
		Name:         row.Name,
		Ducats:       row.Ducats,
		HomeBuilding: row.HomeBuilding,
		CreatedAt:    row.CreatedAt,
	}
	if row.PosJSON != nil {
		var pos model.Position
		if err := json.Unmarshal([]byte(*row.PosJSON), &pos); err == nil {
			c.Position = &pos
		}
	}
	return c, nil
}

// PutCitizen inserts or replaces a citizen record (seeding).
func (s *SQLite) PutCitizen(c *model.Citizen) error {
	var posJSON *string
	if c.Position != nil {
		b, _ := json.Marshal(c.Position)
		str := string(b)
		posJSON = &str
	}
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO citizens
		(username, name, ducats, pos_json, home_building, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Username, c.Name, c.Ducats, posJSON, c.HomeBuilding, c.CreatedAt)
	return err
}

func (s *SQLite) ListCitizens() ([]*model.Citizen, error) {
	var rows []citizenRow
	if err := s.conn.Select(&rows, "SELECT * FROM citizens ORDER BY username"); err != nil {
		return nil, err
	}
	out := make([]*model.Citizen, 0, len(rows))
	for i := range rows {
		c := &model.Citizen{
			Username:     rows[i].Username,
			Name:         rows[i].Name,
			Ducats:       rows[i].Ducats,
			HomeBuilding: rows[i].HomeBuilding,
			CreatedAt:    rows[i].CreatedAt,
		}
		if rows[i].PosJSON != nil {
			var pos model.Position
			if err := json.Unmarshal([]byte(*rows[i].PosJSON), &pos); err == nil {
				c.Position = &pos
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLite) SetDucats(username string, ducats int64) error {
	return checkWrite(s.conn.Exec(
		"UPDATE citizens SET ducats = ? WHERE username = ?", ducats, username))
}

func (s *SQLite) SetPosition(username string, pos model.Position) error {
	b, _ := json.Marshal(pos)
	return checkWrite(s.conn.Exec(
		"UPDATE citizens SET pos_json = ? WHERE username = ?", string(b), username))
}

// ── Buildings ─────────────────────────────────────────────────────────

type buildingRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Category  string  `db:"category"`
	Owner     string  `db:"owner"`
	Occupant  string  `db:"occupant"`
	RunBy     string  `db:"run_by"`
	PosX      float64 `db:"pos_x"`
	PosY      float64 `db:"pos_y"`
	RentPrice int64   `db:"rent_price"`
}

func (s *SQLite) GetBuilding(id string) (*model.Building, error) {
	var row buildingRow
	err := s.conn.Get(&row, "SELECT * FROM buildings WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &model.Building{
		ID:        row.ID,
		Name:      row.Name,
		Category:  model.BuildingCategory(row.Category),
		Owner:     row.Owner,
		Occupant:  row.Occupant,
		RunBy:     row.RunBy,
		Position:  model.Position{X: row.PosX, Y: row.PosY},
		RentPrice: row.RentPrice,
	}, nil
}

// PutBuilding inserts or replaces a building record (seeding).
func (s *SQLite) PutBuilding(b *model.Building) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO buildings
		(id, name, category, owner, occupant, run_by, pos_x, pos_y, rent_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, string(b.Category), b.Owner, b.Occupant, b.RunBy,
		b.Position.X, b.Position.Y, b.RentPrice)
	return err
}

func (s *SQLite) SetOwner(id, owner string) error {
	return checkWrite(s.conn.Exec(
		"UPDATE buildings SET owner = ? WHERE id = ?", owner, id))
}

func (s *SQLite) SetRentPrice(id string, price int64) error {
	return checkWrite(s.conn.Exec(
		"UPDATE buildings SET rent_price = ? WHERE id = ?", price, id))
}

// ── Contracts ─────────────────────────────────────────────────────────

type contractRow struct {
	ID           string    `db:"id"`
	Type         string    `db:"type"`
	Buyer        string    `db:"buyer"`
	Seller       string    `db:"seller"`
	ResourceType string    `db:"resource_type"`
	Asset        string    `db:"asset"`
	PricePerUnit int64     `db:"price_per_unit"`
	TargetAmount int64     `db:"target_amount"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	EndAt        time.Time `db:"end_at"`
}

func (s *SQLite) GetContract(id string) (*model.Contract, error) {
	var row contractRow
	err := s.conn.Get(&row, "SELECT * FROM contracts WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &model.Contract{
		ID:           row.ID,
		Type:         model.ContractType(row.Type),
		Buyer:        row.Buyer,
		Seller:       row.Seller,
		ResourceType: row.ResourceType,
		Asset:        row.Asset,
		PricePerUnit: row.PricePerUnit,
		TargetAmount: row.TargetAmount,
		Status:       model.ContractStatus(row.Status),
		CreatedAt:    row.CreatedAt,
		EndAt:        row.EndAt,
	}, nil
}

func (s *SQLite) CreateContract(c *model.Contract) error {
	_, err := s.conn.Exec(`INSERT INTO contracts
		(id, type, buyer, seller, resource_type, asset, price_per_unit,
		 target_amount, status, created_at, end_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Type), c.Buyer, c.Seller, c.ResourceType, c.Asset,
		c.PricePerUnit, c.TargetAmount, string(c.Status), c.CreatedAt, c.EndAt)
	return err
}

func (s *SQLite) SetContractStatus(id string, status model.ContractStatus) error {
	return checkWrite(s.conn.Exec(
		"UPDATE contracts SET status = ? WHERE id = ?", string(status), id))
}

func (s *SQLite) SetTargetAmount(id string, remaining int64) error {
	return checkWrite(s.conn.Exec(
		"UPDATE contracts SET target_amount = ? WHERE id = ?", remaining, id))
}

// ── Activities ────────────────────────────────────────────────────────

type activityRow struct {
	ID           string    `db:"id"`
	Type         string    `db:"type"`
	Citizen      string    `db:"citizen"`
	FromBuilding string    `db:"from_building"`
	ToBuilding   string    `db:"to_building"`
	FromPosJSON  *string   `db:"from_pos_json"`
	ToPosJSON    *string   `db:"to_pos_json"`
	PathJSON     *string   `db:"path_json"`
	Status       string    `db:"status"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Priority     int       `db:"priority"`
	DependsOn    string    `db:"depends_on"`
	DetailJSON   *string   `db:"detail_json"`
	NextJSON     *string   `db:"next_json"`
	CreatedAt    time.Time `db:"created_at"`
}

func marshalOpt(v any) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	str := string(b)
	return &str
}

func (r *activityRow) toModel() *model.Activity {
	a := &model.Activity{
		ID:           r.ID,
		Type:         model.ActivityType(r.Type),
		Citizen:      r.Citizen,
		FromBuilding: r.FromBuilding,
		ToBuilding:   r.ToBuilding,
		Status:       model.ActivityStatus(r.Status),
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Priority:     r.Priority,
		DependsOn:    r.DependsOn,
		CreatedAt:    r.CreatedAt,
	}
	if r.FromPosJSON != nil {
		var p model.Position
		if json.Unmarshal([]byte(*r.FromPosJSON), &p) == nil {
			a.FromPos = &p
		}
	}
	if r.ToPosJSON != nil {
		var p model.Position
		if json.Unmarshal([]byte(*r.ToPosJSON), &p) == nil {
			a.ToPos = &p
		}
	}
	if r.PathJSON != nil {
		_ = json.Unmarshal([]byte(*r.PathJSON), &a.Path)
	}
	if r.DetailJSON != nil {
		var d model.StepDetail
		if json.Unmarshal([]byte(*r.DetailJSON), &d) == nil {
			a.Detail = &d
		}
	}
	if r.NextJSON != nil {
		var d model.StepDetail
		if json.Unmarshal([]byte(*r.NextJSON), &d) == nil {
			a.Next = &d
		}
	}
	return a
}

func (s *SQLite) CreateActivity(a *model.Activity) error {
	var fromPos, toPos, path, detail, next *string
	if a.FromPos != nil {
		fromPos = marshalOpt(a.FromPos)
	}
	if a.ToPos != nil {
		toPos = marshalOpt(a.ToPos)
	}
	if len(a.Path) > 0 {
		path = marshalOpt(a.Path)
	}
	if a.Detail != nil {
		detail = marshalOpt(a.Detail)
	}
	if a.Next != nil {
		next = marshalOpt(a.Next)
	}
	_, err := s.conn.Exec(`INSERT INTO activities
		(id, type, citizen, from_building, to_building, from_pos_json, to_pos_json,
		 path_json, status, start_time, end_time, priority, depends_on,
		 detail_json, next_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Citizen, a.FromBuilding, a.ToBuilding,
		fromPos, toPos, path, string(a.Status), a.StartTime, a.EndTime,
		a.Priority, a.DependsOn, detail, next, a.CreatedAt)
	return err
}

func (s *SQLite) GetActivity(id string) (*model.Activity, error) {
	var row activityRow
	err := s.conn.Get(&row, "SELECT * FROM activities WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (s *SQLite) SetActivityStatus(id string, status model.ActivityStatus) error {
	return checkWrite(s.conn.Exec(
		"UPDATE activities SET status = ? WHERE id = ?", string(status), id))
}

func (s *SQLite) DueActivities(now time.Time) ([]*model.Activity, error) {
	var rows []activityRow
	err := s.conn.Select(&rows, `SELECT * FROM activities
		WHERE status = ? AND end_time <= ?
		ORDER BY priority DESC, start_time ASC`,
		string(model.ActivityCreated), now)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Activity, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *SQLite) PendingByCitizen(username string) ([]*model.Activity, error) {
	var rows []activityRow
	err := s.conn.Select(&rows, `SELECT * FROM activities
		WHERE citizen = ? AND status IN (?, ?)
		ORDER BY end_time ASC`,
		username, string(model.ActivityCreated), string(model.ActivityInProgress))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Activity, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// ── Stratagems ────────────────────────────────────────────────────────

type stratagemRow struct {
	ID         string    `db:"id"`
	Type       string    `db:"type"`
	Executor   string    `db:"executor"`
	Target     string    `db:"target"`
	Status     string    `db:"status"`
	ParamsJSON string    `db:"params_json"`
	StateJSON  string    `db:"state_json"`
	CreatedAt  time.Time `db:"created_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}

func (r *stratagemRow) toModel() (*model.Stratagem, error) {
	s := &model.Stratagem{
		ID:        r.ID,
		Type:      model.StratagemType(r.Type),
		Executor:  r.Executor,
		Target:    r.Target,
		Status:    model.StratagemStatus(r.Status),
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
	if err := json.Unmarshal([]byte(r.ParamsJSON), &s.Params); err != nil {
		return nil, fmt.Errorf("stratagem %s params: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.StateJSON), &s.State); err != nil {
		return nil, fmt.Errorf("stratagem %s state: %w", r.ID, err)
	}
	return s, nil
}

func (s *SQLite) CreateStratagem(st *model.Stratagem) error {
	params, _ := json.Marshal(st.Params)
	state, _ := json.Marshal(st.State)
	_, err := s.conn.Exec(`INSERT INTO stratagems
		(id, type, executor, target, status, params_json, state_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, string(st.Type), st.Executor, st.Target, string(st.Status),
		string(params), string(state), st.CreatedAt, st.ExpiresAt)
	return err
}

func (s *SQLite) GetStratagem(id string) (*model.Stratagem, error) {
	var row stratagemRow
	err := s.conn.Get(&row, "SELECT * FROM stratagems WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return row.toModel()
}

func (s *SQLite) UpdateStratagem(st *model.Stratagem) error {
	params, _ := json.Marshal(st.Params)
	state, _ := json.Marshal(st.State)
	return checkWrite(s.conn.Exec(`UPDATE stratagems
		SET status = ?, params_json = ?, state_json = ?, expires_at = ?
		WHERE id = ?`,
		string(st.Status), string(params), string(state), st.ExpiresAt, st.ID))
}

func (s *SQLite) ActiveStratagems() ([]*model.Stratagem, error) {
	var rows []stratagemRow
	err := s.conn.Select(&rows, `SELECT * FROM stratagems
		WHERE status = ? ORDER BY created_at ASC`,
		string(model.StratagemActive))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Stratagem, 0, len(rows))
	for i := range rows {
		st, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ── Transactions ──────────────────────────────────────────────────────

type transactionRow struct {
	ID         string     `db:"id"`
	Type       string     `db:"type"`
	Payer      string     `db:"payer"`
	Payee      string     `db:"payee"`
	Amount     int64      `db:"amount"`
	Asset      string     `db:"asset"`
	Status     string     `db:"status"`
	Phase      string     `db:"phase"`
	CreatedAt  time.Time  `db:"created_at"`
	ExecutedAt *time.Time `db:"executed_at"`
}

func (r *transactionRow) toModel() *model.Transaction {
	t := &model.Transaction{
		ID:        r.ID,
		Type:      r.Type,
		Payer:     r.Payer,
		Payee:     r.Payee,
		Amount:    r.Amount,
		Asset:     r.Asset,
		Status:    model.TransactionStatus(r.Status),
		Phase:     model.TransactionPhase(r.Phase),
		CreatedAt: r.CreatedAt,
	}
	if r.ExecutedAt != nil {
		t.ExecutedAt = *r.ExecutedAt
	}
	return t
}

func (s *SQLite) CreateTransaction(t *model.Transaction) error {
	_, err := s.conn.Exec(`INSERT INTO transactions
		(id, type, payer, payee, amount, asset, status, phase, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Payer, t.Payee, t.Amount, t.Asset,
		string(t.Status), string(t.Phase), t.CreatedAt)
	return err
}

func (s *SQLite) GetTransaction(id string) (*model.Transaction, error) {
	var row transactionRow
	err := s.conn.Get(&row, "SELECT * FROM transactions WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (s *SQLite) SetTransactionPhase(id string, phase model.TransactionPhase) error {
	return checkWrite(s.conn.Exec(
		"UPDATE transactions SET phase = ? WHERE id = ?", string(phase), id))
}

func (s *SQLite) MarkCommitted(id string, executedAt time.Time) error {
	return checkWrite(s.conn.Exec(
		"UPDATE transactions SET status = ?, executed_at = ? WHERE id = ?",
		string(model.TxCommitted), executedAt, id))
}

func (s *SQLite) MarkVoid(id string) error {
	return checkWrite(s.conn.Exec(
		"UPDATE transactions SET status = ? WHERE id = ?",
		string(model.TxVoid), id))
}

func (s *SQLite) PendingTransactions(olderThan time.Time) ([]*model.Transaction, error) {
	var rows []transactionRow
	err := s.conn.Select(&rows, `SELECT * FROM transactions
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC`,
		string(model.TxPending), olderThan)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *SQLite) RecentTransactions(limit int) ([]*model.Transaction, error) {
	var rows []transactionRow
	err := s.conn.Select(&rows,
		"SELECT * FROM transactions ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// ── Notifications ─────────────────────────────────────────────────────

func (s *SQLite) CreateNotification(n *model.Notification) error {
	_, err := s.conn.Exec(`INSERT INTO notifications
		(id, citizen, type, content, asset, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Citizen, n.Type, n.Content, n.Asset, n.CreatedAt)
	return err
}

// ── Relationships ─────────────────────────────────────────────────────

type relationshipRow struct {
	CitizenA  string    `db:"citizen_a"`
	CitizenB  string    `db:"citizen_b"`
	Strength  float64   `db:"strength"`
	Trust     float64   `db:"trust"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *SQLite) GetRelationship(a, b string) (*model.Relationship, error) {
	x, y := model.RelationshipPair(a, b)
	var row relationshipRow
	err := s.conn.Get(&row,
		"SELECT * FROM relationships WHERE citizen_a = ? AND citizen_b = ?", x, y)
	if err != nil {
		return nil, notFound(err)
	}
	return &model.Relationship{
		CitizenA:  row.CitizenA,
		CitizenB:  row.CitizenB,
		Strength:  row.Strength,
		Trust:     row.Trust,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *SQLite) UpsertRelationship(r *model.Relationship) error {
	x, y := model.RelationshipPair(r.CitizenA, r.CitizenB)
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO relationships
		(citizen_a, citizen_b, strength, trust, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		x, y, r.Strength, r.Trust, r.UpdatedAt)
	return err
}
