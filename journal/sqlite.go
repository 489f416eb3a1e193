package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/cockpit/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) LogTrade(rec TradeRecord) (string, error) {
	if rec.TradeID == "" {
		rec.TradeID = id.New()
	}
	if rec.Status == "" {
		rec.Status = "OPEN"
	}
	if rec.TradingMode == "" {
		rec.TradingMode = "PAPER"
	}
	if rec.EntryTime.IsZero() {
		rec.EntryTime = time.Now().UTC()
	}

	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, action, quantity, order_type, entry_price, stop_loss,
		 take_profit, order_id, trading_mode, agent_generated, confidence,
		 reasoning, entry_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TradeID, rec.Symbol, rec.Action, rec.Quantity, rec.OrderType,
		rec.EntryPrice, rec.StopLoss, rec.TakeProfit, rec.OrderID,
		rec.TradingMode, rec.AgentGenerated, rec.Confidence, rec.Reasoning,
		rec.EntryTime, rec.Status,
	)
	if err != nil {
		return "", err
	}
	return rec.TradeID, nil
}

func (j *SQLite) UpdateExit(tradeID string, exit ExitUpdate) error {
	if exit.ExitTime.IsZero() {
		exit.ExitTime = time.Now().UTC()
	}

	res, err := j.db.Exec(`
		UPDATE trades SET
			exit_price = ?, pnl = ?, pnl_pct = ?, status = 'CLOSED', exit_time = ?
		WHERE trade_id = ?`,
		exit.ExitPrice, exit.PnL, exit.PnLPct, exit.ExitTime, tradeID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("trade %q not found", tradeID)
	}
	return nil
}

func (j *SQLite) ListTrades(limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.Query(`
		SELECT trade_id, symbol, action, quantity, order_type, entry_price,
		       stop_loss, take_profit, order_id, trading_mode, agent_generated,
		       confidence, reasoning, entry_time, exit_price, pnl, pnl_pct,
		       status, exit_time
		FROM trades
		ORDER BY entry_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var exitTime sql.NullTime
		if err := rows.Scan(
			&rec.TradeID, &rec.Symbol, &rec.Action, &rec.Quantity,
			&rec.OrderType, &rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit,
			&rec.OrderID, &rec.TradingMode, &rec.AgentGenerated,
			&rec.Confidence, &rec.Reasoning, &rec.EntryTime, &rec.ExitPrice,
			&rec.PnL, &rec.PnLPct, &rec.Status, &exitTime,
		); err != nil {
			return nil, err
		}
		if exitTime.Valid {
			rec.ExitTime = exitTime.Time
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

var _ Journal = (*SQLite)(nil)
