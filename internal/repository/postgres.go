package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
)

// TenantRepository loads tenant records. Implementations must re-read the
// identifying columns on every call so that settings changes are visible on
// the next request without cache invalidation.
type TenantRepository interface {
	GetBySlug(ctx context.Context, slug string) (domain.Tenant, error)
	GetByID(ctx context.Context, tenantID int64) (domain.Tenant, error)
}

// UserRepository loads and creates tenant-scoped accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, tenantID int64, username string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// CouponRepository covers the thin business surface the admission chain
// fronts. All queries are tenant-scoped by explicit tenant id.
type CouponRepository interface {
	ListCampaigns(ctx context.Context, tenantID int64) ([]domain.Campaign, error)
	CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	RedeemCoupon(ctx context.Context, tenantID int64, code string) (domain.Coupon, error)
	CreateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error)
}

// Compile-time interface assertions.
var (
	_ TenantRepository = (*PostgresTenantRepo)(nil)
	_ UserRepository   = (*PostgresUserRepo)(nil)
	_ CouponRepository = (*PostgresCouponRepo)(nil)
)

// PostgresTenantRepo implements TenantRepository over pgx.
type PostgresTenantRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTenantRepo(pool *pgxpool.Pool) *PostgresTenantRepo {
	return &PostgresTenantRepo{db: pool}
}

const selectTenantBySlugSQL = `SELECT id, slug, name, email_from_name, email_from_address, custom_domain, mail_provider_domain, mail_provider_region, created_at, updated_at
FROM tenants WHERE slug = $1`

func (r *PostgresTenantRepo) GetBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRow(ctx, selectTenantBySlugSQL, slug))
}

const selectTenantByIDSQL = `SELECT id, slug, name, email_from_name, email_from_address, custom_domain, mail_provider_domain, mail_provider_region, created_at, updated_at
FROM tenants WHERE id = $1`

func (r *PostgresTenantRepo) GetByID(ctx context.Context, tenantID int64) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRow(ctx, selectTenantByIDSQL, tenantID))
}

func (r *PostgresTenantRepo) scanTenant(row pgx.Row) (domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&t.EmailFromName,
		&t.EmailFromAddress,
		&t.CustomDomain,
		&t.MailProviderDomain,
		&t.MailProviderRegion,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("%w: get tenant: %v", domain.ErrStoreUnavailable, err)
	}
	return t, nil
}

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const selectUserSQL = `SELECT id, tenant_id, username, password_hash, role, is_superadmin, created_at, updated_at
FROM users WHERE tenant_id = $1 AND username = $2`

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, tenantID int64, username string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, selectUserSQL, tenantID, username).Scan(
		&u.ID,
		&u.TenantID,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.IsSuperAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

const insertUserSQL = `INSERT INTO users (tenant_id, username, password_hash, role, is_superadmin)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, tenant_id, username, password_hash, role, is_superadmin, created_at, updated_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	var inserted domain.User
	err := r.db.QueryRow(ctx, insertUserSQL,
		user.TenantID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.IsSuperAdmin,
	).Scan(
		&inserted.ID,
		&inserted.TenantID,
		&inserted.Username,
		&inserted.PasswordHash,
		&inserted.Role,
		&inserted.IsSuperAdmin,
		&inserted.CreatedAt,
		&inserted.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return inserted, nil
}

// PostgresCouponRepo implements CouponRepository.
type PostgresCouponRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCouponRepo(pool *pgxpool.Pool) *PostgresCouponRepo {
	return &PostgresCouponRepo{db: pool}
}

const listCampaignsSQL = `SELECT id, tenant_id, name, active, created_at
FROM campaigns WHERE tenant_id = $1 ORDER BY created_at DESC`

func (r *PostgresCouponRepo) ListCampaigns(ctx context.Context, tenantID int64) ([]domain.Campaign, error) {
	rows, err := r.db.Query(ctx, listCampaignsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

const insertCampaignSQL = `INSERT INTO campaigns (tenant_id, name, active)
VALUES ($1, $2, $3)
RETURNING id, tenant_id, name, active, created_at`

func (r *PostgresCouponRepo) CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	var inserted domain.Campaign
	err := r.db.QueryRow(ctx, insertCampaignSQL, campaign.TenantID, campaign.Name, campaign.Active).
		Scan(&inserted.ID, &inserted.TenantID, &inserted.Name, &inserted.Active, &inserted.CreatedAt)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return inserted, nil
}

const redeemCouponSQL = `UPDATE coupons SET redeemed = true, redeemed_at = now()
WHERE tenant_id = $1 AND code = $2 AND redeemed = false
RETURNING id, tenant_id, campaign_id, code, email, redeemed, redeemed_at, created_at`

func (r *PostgresCouponRepo) RedeemCoupon(ctx context.Context, tenantID int64, code string) (domain.Coupon, error) {
	var c domain.Coupon
	err := r.db.QueryRow(ctx, redeemCouponSQL, tenantID, code).Scan(
		&c.ID,
		&c.TenantID,
		&c.CampaignID,
		&c.Code,
		&c.Email,
		&c.Redeemed,
		&c.RedeemedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("redeem coupon: %w", err)
	}
	return c, nil
}

const insertSubmissionSQL = `INSERT INTO submissions (tenant_id, email, client_ip)
VALUES ($1, $2, $3)
RETURNING id, tenant_id, email, client_ip, created_at`

func (r *PostgresCouponRepo) CreateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	var inserted domain.Submission
	err := r.db.QueryRow(ctx, insertSubmissionSQL, sub.TenantID, sub.Email, sub.ClientIP).
		Scan(&inserted.ID, &inserted.TenantID, &inserted.Email, &inserted.ClientIP, &inserted.CreatedAt)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return inserted, nil
}
