package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the profiles table and attaches the change trigger that
// notifies channel on every row change.
func Migrate(ctx context.Context, db *sqlx.DB, channel string) error {
	schema, err := migrations.ReadFile("migrations/001_profiles.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	trigger := fmt.Sprintf(`
		DROP TRIGGER IF EXISTS profiles_changed ON profiles;
		CREATE TRIGGER profiles_changed
			AFTER INSERT OR UPDATE OR DELETE ON profiles
			FOR EACH ROW EXECUTE FUNCTION notify_profiles_changed(%s);
	`, pq.QuoteLiteral(channel))
	if _, err := db.ExecContext(ctx, trigger); err != nil {
		return fmt.Errorf("failed to install change trigger: %w", err)
	}
	return nil
}
