package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// complaintRow mirrors a complaint document; every column except the key is
// nullable so that a partially written record stays representable.
type complaintRow struct {
	ID         string  `gorm:"primaryKey"`
	AuthorID   *string `gorm:"type:text"`
	Text       *string `gorm:"type:text"`
	Timestamp  *int64  `gorm:"index"`
	Department *string `gorm:"type:text"`
	Feedback   *string `gorm:"type:text"`
}

func (complaintRow) TableName() string { return "complaints" }

func (r complaintRow) document() models.Document {
	f := models.Fields{config.FieldComplaintID: r.ID}
	put := func(key string, v *string) {
		if v != nil {
			f[key] = *v
		}
	}
	put(config.FieldAuthorID, r.AuthorID)
	put(config.FieldText, r.Text)
	put(config.FieldDepartment, r.Department)
	put(config.FieldFeedback, r.Feedback)
	if r.Timestamp != nil {
		f[config.FieldTimestamp] = strconv.FormatInt(*r.Timestamp, 10)
	}
	return models.Document{ID: r.ID, Fields: f}
}

func rowFromComplaint(c *models.Complaint) complaintRow {
	dept := string(c.Department)
	ts := c.Timestamp
	return complaintRow{
		ID:         c.ID,
		AuthorID:   &c.AuthorID,
		Text:       &c.Text,
		Timestamp:  &ts,
		Department: &dept,
		Feedback:   c.Feedback,
	}
}

// columnFor maps a document field name to its column.
var columnFor = map[string]string{
	config.FieldAuthorID:   "author_id",
	config.FieldText:       "text",
	config.FieldTimestamp:  "timestamp",
	config.FieldDepartment: "department",
	config.FieldFeedback:   "feedback",
}

// PostgresStore keeps documents in two tables and relies on a trigger issuing
// pg_notify so that writes from any client reach live subscriptions.
type PostgresStore struct {
	DB  *gorm.DB
	dsn string
}

// NewPostgresStore opens the database and runs migrations.
func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{DB: db, dsn: cfg.DSN()}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables and the change-notification trigger.
func (s *PostgresStore) Migrate() error {
	if err := s.DB.AutoMigrate(&models.User{}, &complaintRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	channel := pq.QuoteLiteral(config.ComplaintsNotifyChannel)
	fn := `
CREATE OR REPLACE FUNCTION complaints_notify() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify(` + channel + `, COALESCE(NEW.id, OLD.id));
    RETURN NULL;
END;
$$ LANGUAGE plpgsql`
	if err := s.DB.Exec(fn).Error; err != nil {
		return fmt.Errorf("migrate notify function: %w", err)
	}
	table := pq.QuoteIdentifier("complaints")
	if err := s.DB.Exec("DROP TRIGGER IF EXISTS complaints_notify ON " + table).Error; err != nil {
		return fmt.Errorf("migrate notify trigger: %w", err)
	}
	trigger := `
CREATE TRIGGER complaints_notify AFTER INSERT OR UPDATE OR DELETE ON ` + table + `
    FOR EACH ROW EXECUTE FUNCTION complaints_notify()`
	if err := s.DB.Exec(trigger).Error; err != nil {
		return fmt.Errorf("migrate notify trigger: %w", err)
	}
	log.Println("INFO: postgres migrations complete")
	return nil
}

func (s *PostgresStore) GetUserProfile(ctx context.Context, userID string) (models.Fields, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load user %s: %v", models.ErrStoreRead, userID, err)
	}
	return user.Fields(), nil
}

func (s *PostgresStore) SubscribeComplaints(ctx context.Context) (Subscription, error) {
	errs := make(chan error, 1)
	changes := make(chan struct{}, 1)
	signal := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	listener := pq.NewListener(s.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			if err != nil {
				select {
				case errs <- fmt.Errorf("%w: complaints listener: %v", models.ErrStoreRead, err):
				default:
				}
			}
		case pq.ListenerEventReconnected:
			// notifications may have been lost while disconnected
			signal()
		}
	})
	if err := listener.Listen(config.ComplaintsNotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("%w: listen %s: %v", models.ErrStoreRead, config.ComplaintsNotifyChannel, err)
	}

	f := newFeed(ctx, listener.Close)
	go func() {
		defer close(changes)
		for range listener.Notify {
			signal()
		}
	}()
	f.run(s.loadComplaints, changes, errs)
	return f, nil
}

func (s *PostgresStore) loadComplaints(ctx context.Context) (models.Snapshot, error) {
	var rows []complaintRow
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load complaints: %v", models.ErrStoreRead, err)
	}
	snap := make(models.Snapshot, 0, len(rows))
	for _, r := range rows {
		snap = append(snap, r.document())
	}
	return snap, nil
}

func (s *PostgresStore) SetComplaintField(ctx context.Context, complaintID, field, value string) error {
	column, ok := columnFor[field]
	if !ok || !allowedComplaintField(field) {
		return fmt.Errorf("%w: field %q is not writable", models.ErrStoreWrite, field)
	}

	var v interface{} = value
	if field == config.FieldTimestamp {
		ts, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: timestamp %q: %v", models.ErrStoreWrite, value, err)
		}
		v = ts
	}

	res := s.DB.WithContext(ctx).Model(&complaintRow{}).
		Where("id = ?", complaintID).
		Update(column, v)
	if res.Error != nil {
		return fmt.Errorf("%w: set %s on %s: %v", models.ErrStoreWrite, field, complaintID, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrComplaintNotFound
	}
	return nil
}

func (s *PostgresStore) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	row := rowFromComplaint(complaint)
	if err := s.DB.WithContext(ctx).Save(&row).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint %s: %v", complaint.ID, err)
		return fmt.Errorf("%w: save complaint %s: %v", models.ErrStoreWrite, complaint.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("%w: save user %s: %v", models.ErrStoreWrite, user.ID, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
