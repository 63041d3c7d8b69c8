package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rwa-tokenizer/pkg/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyTokenized = errors.New("asset already tokenized")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet_address TEXT NOT NULL UNIQUE,
    email TEXT,
    kyc_status TEXT DEFAULT 'pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    asset_type TEXT NOT NULL,
    description TEXT NOT NULL,
    estimated_value REAL,
    location TEXT NOT NULL DEFAULT 'unknown',
    verification_status TEXT NOT NULL DEFAULT 'pending',
    token_id TEXT,
    requirements TEXT DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    asset_id INTEGER NOT NULL REFERENCES assets(id),
    transaction_type TEXT NOT NULL,
    transaction_hash TEXT,
    status TEXT DEFAULT 'pending',
    details TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_asset_user ON assets(user_id);
CREATE INDEX IF NOT EXISTS idx_asset_status ON assets(verification_status);
CREATE INDEX IF NOT EXISTS idx_tx_asset ON transactions(asset_id);
CREATE INDEX IF NOT EXISTS idx_tx_time ON transactions(created_at);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertUser returns the user for wallet, creating it on first sight. The
// email is only filled in when the stored one is empty.
func (s *Store) UpsertUser(wallet, email string) (*models.User, error) {
	_, err := s.db.Exec(`
		INSERT INTO users (wallet_address, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			email = CASE WHEN COALESCE(users.email,'') = '' THEN excluded.email ELSE users.email END`,
		wallet, email, s.now())
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUserByWallet(wallet)
}

func (s *Store) GetUserByWallet(wallet string) (*models.User, error) {
	var u models.User
	var created time.Time
	err := s.db.QueryRow(`SELECT id, wallet_address, COALESCE(email,''), COALESCE(kyc_status,'pending'), created_at FROM users WHERE wallet_address=?`,
		wallet).Scan(&u.ID, &u.WalletAddress, &u.Email, &u.KYCStatus, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = models.NewTimestamp(created)
	return &u, nil
}

type NewAsset struct {
	UserID         int64
	AssetType      models.AssetType
	Description    string
	EstimatedValue *float64
	Location       string
}

func (s *Store) InsertAsset(a NewAsset) (*models.Asset, error) {
	now := s.now()
	var value interface{}
	if a.EstimatedValue != nil {
		value = *a.EstimatedValue
	}
	res, err := s.db.Exec(`
		INSERT INTO assets (user_id, asset_type, description, estimated_value, location, verification_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, string(a.AssetType), a.Description, value, a.Location, string(models.StatusPending), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetAsset(id)
}

const assetColumns = `id, user_id, asset_type, description, estimated_value, location, verification_status, token_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		a                 models.Asset
		id                int64
		assetType, status string
		value             sql.NullFloat64
		token             sql.NullString
		created, updated  time.Time
	)
	if err := row.Scan(&id, &a.UserID, &assetType, &a.Description, &value, &a.Location, &status, &token, &created, &updated); err != nil {
		return nil, err
	}
	a.ID = models.AssetIDFromInt(id)
	a.AssetType = models.AssetType(assetType)
	a.VerificationStatus = models.VerificationStatus(status)
	if value.Valid {
		v := value.Float64
		a.EstimatedValue = &v
	}
	if token.Valid && token.String != "" {
		t := token.String
		a.TokenID = &t
	}
	a.CreatedAt = models.NewTimestamp(created)
	a.UpdatedAt = models.NewTimestamp(updated)
	return &a, nil
}

func (s *Store) GetAsset(id int64) (*models.Asset, error) {
	a, err := scanAsset(s.db.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	return a, nil
}

// GetAssetsForWallet lists the wallet's assets newest first. An unknown
// wallet yields an empty list.
func (s *Store) GetAssetsForWallet(wallet string) ([]models.Asset, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.user_id, a.asset_type, a.description, a.estimated_value, a.location, a.verification_status, a.token_id, a.created_at, a.updated_at
		FROM assets a JOIN users u ON u.id = a.user_id
		WHERE u.wallet_address=?
		ORDER BY a.created_at DESC, a.id DESC`, wallet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

func (s *Store) UpdateVerification(id int64, status models.VerificationStatus) error {
	res, err := s.db.Exec(`UPDATE assets SET verification_status=?, updated_at=? WHERE id=?`, string(status), s.now(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetTokenID assigns the token once. A second assignment fails with
// ErrAlreadyTokenized.
func (s *Store) SetTokenID(id int64, tokenID string) error {
	res, err := s.db.Exec(`UPDATE assets SET token_id=?, updated_at=? WHERE id=? AND (token_id IS NULL OR token_id='')`, tokenID, s.now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetAsset(id); err != nil {
		return err
	}
	return ErrAlreadyTokenized
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertTransaction(assetID int64, txType models.TransactionType, status string, hash string, details interface{}) (int64, error) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("encode details: %w", err)
	}
	var h interface{}
	if hash != "" {
		h = hash
	}
	res, err := s.db.Exec(`
		INSERT INTO transactions (asset_id, transaction_type, transaction_hash, status, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		assetID, string(txType), h, status, string(detailsJSON), s.now())
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

// GetTransactions returns the asset's history newest first.
func (s *Store) GetTransactions(assetID int64) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, asset_id, transaction_type, transaction_hash, COALESCE(status,''), details, created_at
		FROM transactions WHERE asset_id=? ORDER BY created_at DESC, id DESC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var (
			tx      models.Transaction
			aid     int64
			txType  string
			hash    sql.NullString
			details sql.NullString
			created time.Time
		)
		if err := rows.Scan(&tx.ID, &aid, &txType, &hash, &tx.Status, &details, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.AssetID = models.AssetIDFromInt(aid)
		tx.TransactionType = models.TransactionType(txType)
		if hash.Valid && hash.String != "" {
			h := hash.String
			tx.TransactionHash = &h
		}
		if details.Valid && json.Valid([]byte(details.String)) {
			tx.Details = json.RawMessage(details.String)
		}
		tx.CreatedAt = models.NewTimestamp(created)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// LatestVerification decodes the newest verification payload for the asset.
func (s *Store) LatestVerification(assetID int64) (*models.VerificationResult, error) {
	var details sql.NullString
	err := s.db.QueryRow(`
		SELECT details FROM transactions WHERE asset_id=? AND transaction_type=?
		ORDER BY created_at DESC, id DESC LIMIT 1`, assetID, string(models.TxVerification)).Scan(&details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx := models.Transaction{Details: json.RawMessage(details.String)}
	return tx.VerificationPayload()
}

// GetStats counts assets and users. Rates are percentages; the tokenization
// rate is relative to verified assets.
func (s *Store) GetStats() (*models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM assets),
			(SELECT COUNT(*) FROM assets WHERE verification_status='verified'),
			(SELECT COUNT(*) FROM assets WHERE token_id IS NOT NULL AND token_id != ''),
			(SELECT COUNT(*) FROM users)`).Scan(&st.TotalAssets, &st.VerifiedAssets, &st.TokenizedAssets, &st.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if st.TotalAssets > 0 {
		st.VerificationRate = float64(st.VerifiedAssets) / float64(st.TotalAssets) * 100
	}
	if st.VerifiedAssets > 0 {
		st.TokenizationRate = float64(st.TokenizedAssets) / float64(st.VerifiedAssets) * 100
	}
	return &st, nil
}
