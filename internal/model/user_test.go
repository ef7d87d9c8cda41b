package model_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

func TestRoleRank(t *testing.T) {
	// Verify strict ordering: Leader > Manager > Agent.
	// Unknown roles must rank below Agent.
	tests := []struct {
		role model.UserRole
		rank int
	}{
		{model.RoleLeader, 3},
		{model.RoleManager, 2},
		{model.RoleAgent, 1},
		{model.UserRole("unknown"), 0},
		{model.UserRole(""), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.rank, model.RoleRank(tt.role), "RoleRank(%q)", tt.role)
		})
	}
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		name    string
		role    model.UserRole
		minRole model.UserRole
		want    bool
	}{
		{"agent >= agent", model.RoleAgent, model.RoleAgent, true},
		{"manager >= manager", model.RoleManager, model.RoleManager, true},
		{"leader >= leader", model.RoleLeader, model.RoleLeader, true},

		{"manager >= agent", model.RoleManager, model.RoleAgent, true},
		{"leader >= agent", model.RoleLeader, model.RoleAgent, true},
		{"leader >= manager", model.RoleLeader, model.RoleManager, true},

		{"agent >= manager", model.RoleAgent, model.RoleManager, false},
		{"agent >= leader", model.RoleAgent, model.RoleLeader, false},
		{"manager >= leader", model.RoleManager, model.RoleLeader, false},

		{"unknown >= agent", model.UserRole("bogus"), model.RoleAgent, false},
		{"agent >= unknown", model.RoleAgent, model.UserRole("bogus"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.RoleAtLeast(tt.role, tt.minRole))
		})
	}
}

func TestParseUserRole(t *testing.T) {
	for _, s := range []string{"Agent", "Manager", "Leader"} {
		role, err := model.ParseUserRole(s)
		require.NoError(t, err)
		assert.Equal(t, model.UserRole(s), role)
	}

	// Unrecognized stored strings surface a data-integrity error instead of
	// silently falling back to a default variant.
	_, err := model.ParseUserRole("Supervisor")
	require.Error(t, err)
	_, err = model.ParseUserRole("")
	require.Error(t, err)
	_, err = model.ParseUserRole("agent") // case matters: canonical spelling only
	require.Error(t, err)
}

func TestInferRole(t *testing.T) {
	managerID := uuid.New()
	assert.Equal(t, model.RoleAgent, model.InferRole(&managerID))
	assert.Equal(t, model.RoleManager, model.InferRole(nil))
}

func TestParseEnumerations(t *testing.T) {
	t.Run("contract type", func(t *testing.T) {
		ct, err := model.ParseContractType("BonusLifeProgram")
		require.NoError(t, err)
		assert.Equal(t, model.ContractBonusLifeProgram, ct)

		_, err = model.ParseContractType("PetInsurance")
		require.Error(t, err)
	})

	t.Run("payment frequency", func(t *testing.T) {
		pf, err := model.ParsePaymentFrequency("Quarterly")
		require.NoError(t, err)
		assert.Equal(t, model.PayQuarterly, pf)

		_, err = model.ParsePaymentFrequency("Weekly")
		require.Error(t, err)
	})

	t.Run("payment method", func(t *testing.T) {
		pm, err := model.ParsePaymentMethod("DirectDebit")
		require.NoError(t, err)
		assert.Equal(t, model.PayDirectDebit, pm)

		_, err = model.ParsePaymentMethod("Cash")
		require.Error(t, err)
	})

	t.Run("lead status", func(t *testing.T) {
		ls, err := model.ParseLeadStatus("InProgress")
		require.NoError(t, err)
		assert.Equal(t, model.LeadInProgress, ls)

		_, err = model.ParseLeadStatus("Done")
		require.Error(t, err)
	})

	t.Run("task status", func(t *testing.T) {
		ts, err := model.ParseTaskStatus("PaymentPromise")
		require.NoError(t, err)
		assert.Equal(t, model.TaskPaymentPromise, ts)

		_, err = model.ParseTaskStatus("Waiting")
		require.Error(t, err)
	})

	t.Run("meeting type", func(t *testing.T) {
		mt, err := model.ParseMeetingType("AnnualReview")
		require.NoError(t, err)
		assert.Equal(t, model.MeetAnnualReview, mt)

		_, err = model.ParseMeetingType("Lunch")
		require.Error(t, err)
	})
}

func TestCustomerValidate(t *testing.T) {
	valid := model.Customer{FullName: "Kiss Éva", Email: "eva@x.com", PhoneNumber: "+36201234567"}
	require.NoError(t, valid.Validate())

	for _, c := range []model.Customer{
		{Email: "eva@x.com", PhoneNumber: "+36201234567"},
		{FullName: "Kiss Éva", PhoneNumber: "+36201234567"},
		{FullName: "Kiss Éva", Email: "eva@x.com"},
	} {
		assert.Error(t, c.Validate())
	}
}

func TestRecruitmentValidate(t *testing.T) {
	valid := model.Recruitment{Email: "a@x.com", PhoneNumber: "+3611234567"}
	require.NoError(t, valid.Validate())

	assert.Error(t, model.Recruitment{PhoneNumber: "+3611234567"}.Validate())
	assert.Error(t, model.Recruitment{Email: "a@x.com"}.Validate())
}
