package storage

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"election-backend/models"
)

// GormStore backs Store with postgres via gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects to postgres and migrates the schema.
func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.AutoMigrate(
		&models.Voter{},
		&models.Election{},
		&models.Candidate{},
		&models.VoteReceipt{},
		&models.CachedResult{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	return &GormStore{db: db}, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

// ---- voters ----

func (s *GormStore) CreateVoter(ctx context.Context, voter *models.Voter) error {
	return translate(s.db.WithContext(ctx).Create(voter).Error)
}

func (s *GormStore) VoterByID(ctx context.Context, id uint) (*models.Voter, error) {
	var voter models.Voter
	if err := s.db.WithContext(ctx).First(&voter, id).Error; err != nil {
		return nil, translate(err)
	}
	return &voter, nil
}

func (s *GormStore) VoterByWallet(ctx context.Context, wallet string) (*models.Voter, error) {
	var voter models.Voter
	err := s.db.WithContext(ctx).Where("lower(wallet_address) = lower(?)", wallet).First(&voter).Error
	if err != nil {
		return nil, translate(err)
	}
	return &voter, nil
}

func (s *GormStore) VoterByIdentityHash(ctx context.Context, hash string) (*models.Voter, error) {
	var voter models.Voter
	err := s.db.WithContext(ctx).Where("identity_hash = ?", hash).First(&voter).Error
	if err != nil {
		return nil, translate(err)
	}
	return &voter, nil
}

func (s *GormStore) UpdateVoter(ctx context.Context, voter *models.Voter) error {
	return translate(s.db.WithContext(ctx).Save(voter).Error)
}

func (s *GormStore) ListVoters(ctx context.Context, offset, limit int) ([]models.Voter, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Voter{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var voters []models.Voter
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&voters).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return voters, total, nil
}

func (s *GormStore) CountVoters(ctx context.Context) (*VoterCounts, error) {
	counts := &VoterCounts{}
	if err := s.db.WithContext(ctx).Model(&models.Voter{}).Count(&counts.Total).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Voter{}).
		Where("is_active = ?", true).Count(&counts.Active).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Voter{}).
		Where("is_registered_on_chain = ?", true).Count(&counts.OnChain).Error; err != nil {
		return nil, translate(err)
	}
	return counts, nil
}

// ---- elections ----

func (s *GormStore) CreateElection(ctx context.Context, election *models.Election) error {
	// gorm persists the candidates association in the same transaction.
	return translate(s.db.WithContext(ctx).Create(election).Error)
}

func (s *GormStore) ElectionByID(ctx context.Context, id uint) (*models.Election, error) {
	var election models.Election
	err := s.db.WithContext(ctx).Preload("Candidates").First(&election, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &election, nil
}

func (s *GormStore) ElectionByBallot(ctx context.Context, ballot string) (*models.Election, error) {
	var election models.Election
	err := s.db.WithContext(ctx).Preload("Candidates").
		Where("lower(ballot_address) = lower(?)", ballot).First(&election).Error
	if err != nil {
		return nil, translate(err)
	}
	return &election, nil
}

func (s *GormStore) UpdateElection(ctx context.Context, election *models.Election) error {
	return translate(s.db.WithContext(ctx).Omit("Candidates").Save(election).Error)
}

func (s *GormStore) ListElections(ctx context.Context, status models.ElectionStatus) ([]models.Election, error) {
	db := s.db.WithContext(ctx).Preload("Candidates").Order("created_at desc")
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var elections []models.Election
	if err := db.Find(&elections).Error; err != nil {
		return nil, translate(err)
	}
	return elections, nil
}

// ---- receipts ----

func (s *GormStore) CreateReceipt(ctx context.Context, receipt *models.VoteReceipt) error {
	return translate(s.db.WithContext(ctx).Create(receipt).Error)
}

func (s *GormStore) Receipt(ctx context.Context, electionID uint, voterAddress string) (*models.VoteReceipt, error) {
	var receipt models.VoteReceipt
	err := s.db.WithContext(ctx).
		Where("election_id = ? AND lower(voter_address) = lower(?)", electionID, voterAddress).
		First(&receipt).Error
	if err != nil {
		return nil, translate(err)
	}
	return &receipt, nil
}

func (s *GormStore) UpdateReceipt(ctx context.Context, receipt *models.VoteReceipt) error {
	return translate(s.db.WithContext(ctx).Save(receipt).Error)
}

func (s *GormStore) ReceiptsByVoter(ctx context.Context, voterAddress string) ([]models.VoteReceipt, error) {
	var receipts []models.VoteReceipt
	err := s.db.WithContext(ctx).
		Where("lower(voter_address) = lower(?)", voterAddress).
		Order("committed_at desc").
		Find(&receipts).Error
	if err != nil {
		return nil, translate(err)
	}
	return receipts, nil
}

// ---- cached results ----

func (s *GormStore) ReplaceResults(ctx context.Context, electionID uint, rows []models.CachedResult) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("election_id = ?", electionID).Delete(&models.CachedResult{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	return translate(err)
}

func (s *GormStore) ResultsByElection(ctx context.Context, electionID uint) ([]models.CachedResult, error) {
	var rows []models.CachedResult
	err := s.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("vote_count desc").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}
