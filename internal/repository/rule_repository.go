package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// RuleRepository persists a pattern's eligibility and passing rule sets.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new repository instance.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// EligibilityRules returns a pattern's eligibility rules ordered by priority.
func (r *RuleRepository) EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error) {
	const query = `SELECT id, pattern_id, rule_code, rule_name, description, minimum_overall_percentage,
        minimum_attendance_percentage, mandatory_components_completion, minimum_components_completion,
        condonation_allowed, condonation_percentage_limit, priority_order, is_active, created_at, updated_at
        FROM eligibility_rules WHERE pattern_id = $1 ORDER BY priority_order`
	var rules []models.EligibilityRule
	if err := r.db.SelectContext(ctx, &rules, query, patternID); err != nil {
		return nil, fmt.Errorf("load eligibility rules: %w", err)
	}
	return rules, nil
}

// PassingRules returns a pattern's passing rules ordered by priority.
func (r *RuleRepository) PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error) {
	const query = `SELECT id, pattern_id, rule_code, rule_name, description, minimum_pass_percentage,
        component_wise_minimum_enabled, component_wise_minimum_percentage, grace_mark_enabled,
        grace_mark_percentage_limit, apply_rounding_before_pass_check, priority_order, is_active, created_at, updated_at
        FROM passing_rules WHERE pattern_id = $1 ORDER BY priority_order`
	var rules []models.PassingRule
	if err := r.db.SelectContext(ctx, &rules, query, patternID); err != nil {
		return nil, fmt.Errorf("load passing rules: %w", err)
	}
	return rules, nil
}

// UpsertEligibilityRule inserts or updates one eligibility rule.
func (r *RuleRepository) UpsertEligibilityRule(ctx context.Context, rule *models.EligibilityRule) error {
	now := time.Now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO eligibility_rules (id, pattern_id, rule_code, rule_name, description,
        minimum_overall_percentage, minimum_attendance_percentage, mandatory_components_completion,
        minimum_components_completion, condonation_allowed, condonation_percentage_limit, priority_order,
        is_active, created_at, updated_at)
        VALUES (:id, :pattern_id, :rule_code, :rule_name, :description,
        :minimum_overall_percentage, :minimum_attendance_percentage, :mandatory_components_completion,
        :minimum_components_completion, :condonation_allowed, :condonation_percentage_limit, :priority_order,
        :is_active, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET rule_name = EXCLUDED.rule_name, description = EXCLUDED.description,
        minimum_overall_percentage = EXCLUDED.minimum_overall_percentage,
        minimum_attendance_percentage = EXCLUDED.minimum_attendance_percentage,
        mandatory_components_completion = EXCLUDED.mandatory_components_completion,
        minimum_components_completion = EXCLUDED.minimum_components_completion,
        condonation_allowed = EXCLUDED.condonation_allowed,
        condonation_percentage_limit = EXCLUDED.condonation_percentage_limit,
        priority_order = EXCLUDED.priority_order, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("upsert eligibility rule: %w", err)
	}
	return nil
}

// UpsertPassingRule inserts or updates one passing rule.
func (r *RuleRepository) UpsertPassingRule(ctx context.Context, rule *models.PassingRule) error {
	now := time.Now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO passing_rules (id, pattern_id, rule_code, rule_name, description,
        minimum_pass_percentage, component_wise_minimum_enabled, component_wise_minimum_percentage,
        grace_mark_enabled, grace_mark_percentage_limit, apply_rounding_before_pass_check, priority_order,
        is_active, created_at, updated_at)
        VALUES (:id, :pattern_id, :rule_code, :rule_name, :description,
        :minimum_pass_percentage, :component_wise_minimum_enabled, :component_wise_minimum_percentage,
        :grace_mark_enabled, :grace_mark_percentage_limit, :apply_rounding_before_pass_check, :priority_order,
        :is_active, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET rule_name = EXCLUDED.rule_name, description = EXCLUDED.description,
        minimum_pass_percentage = EXCLUDED.minimum_pass_percentage,
        component_wise_minimum_enabled = EXCLUDED.component_wise_minimum_enabled,
        component_wise_minimum_percentage = EXCLUDED.component_wise_minimum_percentage,
        grace_mark_enabled = EXCLUDED.grace_mark_enabled,
        grace_mark_percentage_limit = EXCLUDED.grace_mark_percentage_limit,
        apply_rounding_before_pass_check = EXCLUDED.apply_rounding_before_pass_check,
        priority_order = EXCLUDED.priority_order, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("upsert passing rule: %w", err)
	}
	return nil
}

// DeleteEligibilityRule removes an eligibility rule.
func (r *RuleRepository) DeleteEligibilityRule(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM eligibility_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete eligibility rule: %w", err)
	}
	return nil
}

// DeletePassingRule removes a passing rule.
func (r *RuleRepository) DeletePassingRule(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM passing_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete passing rule: %w", err)
	}
	return nil
}
