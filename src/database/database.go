package database

import (
	"database/sql"
	stdlog "log"

	"github.com/JavierChicano/inversiones-app/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT,
		currency_preference TEXT DEFAULT 'USD',
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS assets (
		ticker TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT,
		current_price REAL DEFAULT 0,
		last_updated TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		asset_ticker TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity REAL NOT NULL,
		price_per_unit REAL NOT NULL,
		fees REAL DEFAULT 0,
		date TIMESTAMP NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(asset_ticker) REFERENCES assets(ticker)
	);

	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		date TIMESTAMP NOT NULL,
		total_invested REAL NOT NULL,
		total_value REAL NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS watchlist_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		asset_ticker TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, asset_ticker)
	);

	CREATE TABLE IF NOT EXISTS currency_exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		from_currency TEXT NOT NULL,
		to_currency TEXT NOT NULL,
		amount REAL NOT NULL,
		exchange_rate REAL NOT NULL,
		date TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_snapshots_user_date ON portfolio_snapshots(user_id, date);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateTransactionsTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionsTable adds columns introduced after the first release to
// databases created before them.
func migrateTransactionsTable() {
	rows, err := DB.Query("PRAGMA table_info(transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for transactions", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for transactions: %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for transactions", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for transactions: %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for transactions", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for transactions: %v", err)
		}
		return
	}

	if _, ok := columnExists["notes"]; !ok {
		_, err := DB.Exec("ALTER TABLE transactions ADD COLUMN notes TEXT")
		if err != nil {
			logger.L.Error("Error adding 'notes' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'notes' column to 'transactions' table")
		}
	}
	if _, ok := columnExists["fees"]; !ok {
		_, err := DB.Exec("ALTER TABLE transactions ADD COLUMN fees REAL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'fees' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'fees' column to 'transactions' table")
		}
	}
}
