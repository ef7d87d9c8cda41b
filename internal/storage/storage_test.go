package storage_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbook-crm/fieldbook/internal/model"
	"github.com/fieldbook-crm/fieldbook/internal/storage"
	"github.com/fieldbook-crm/fieldbook/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.TestCodec(), testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

var seq atomic.Int64

// uniq makes test values collision-free across tests that share the database.
func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
}

// mustCreateUser registers a user and returns the stored row. With a nil
// manager the user starts as Manager, otherwise as Agent.
func mustCreateUser(t *testing.T, fullName string, managerUUID *uuid.UUID) model.User {
	t.Helper()
	ctx := context.Background()
	username := uniq("user")
	u := model.User{
		Email:     username + "@example.com",
		Username:  username,
		ManagerID: managerUUID,
		Info: model.UserInfo{
			FullName:    fullName,
			PhoneNumber: "+36201234567",
		},
	}
	require.NoError(t, storageCreateUser(ctx, u))
	byName, _, err := testDB.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	stored, err := testDB.GetUserProfile(ctx, byName.UUID)
	require.NoError(t, err)
	return stored
}

func storageCreateUser(ctx context.Context, u model.User) error {
	return testDB.CreateUser(ctx, u, "argon2id-hash-placeholder")
}

// promoteToLeader bypasses the API on purpose: Leaders are promoted by
// operators, never through registration.
func promoteToLeader(t *testing.T, userUUID uuid.UUID) {
	t.Helper()
	_, err := testDB.Pool().Exec(context.Background(),
		`UPDATE users SET user_role = 'Leader' WHERE uuid = $1`, userUUID)
	require.NoError(t, err)
}

func testCustomer(fullName string) model.Customer {
	n := seq.Add(1)
	return model.Customer{
		FullName:    fullName,
		PhoneNumber: fmt.Sprintf("+3620%07d", n),
		Email:       fmt.Sprintf("customer-%d@example.com", n),
		Address:     "Budapest, Fő utca 1.",
	}
}

func TestCreateUserInfersRole(t *testing.T) {
	manager := mustCreateUser(t, "Role Infer Manager", nil)
	assert.Equal(t, model.RoleManager, manager.Role)

	agent := mustCreateUser(t, "Role Infer Agent", &manager.UUID)
	assert.Equal(t, model.RoleAgent, agent.Role)

	var managerUUID uuid.UUID
	err := testDB.Pool().QueryRow(context.Background(),
		`SELECT m.uuid FROM users u JOIN users m ON m.id = u.manager_id WHERE u.uuid = $1`,
		agent.UUID).Scan(&managerUUID)
	require.NoError(t, err)
	assert.Equal(t, manager.UUID, managerUUID)
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := context.Background()
	user := mustCreateUser(t, "Duplicate User", nil)

	err := storageCreateUser(ctx, model.User{
		Email:    user.Email,
		Username: uniq("other"),
		Info:     model.UserInfo{FullName: "Duplicate User"},
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestUserRoleUnknownActor(t *testing.T) {
	_, err := testDB.UserRole(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrActorNotFound)
}

func TestUpdateUserManagerResetsRole(t *testing.T) {
	ctx := context.Background()
	manager := mustCreateUser(t, "Reset Manager", nil)
	standalone := mustCreateUser(t, "Reset Standalone", nil)
	require.Equal(t, model.RoleManager, standalone.Role)

	// Assigning a manager demotes to Agent.
	require.NoError(t, testDB.UpdateUserManager(ctx, standalone.UUID, &manager.UUID))
	role, err := testDB.UserRole(ctx, standalone.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgent, role)

	// Detaching promotes back to Manager.
	require.NoError(t, testDB.UpdateUserManager(ctx, standalone.UUID, nil))
	role, err = testDB.UserRole(ctx, standalone.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, role)
}

func TestSubUsersVisibility(t *testing.T) {
	ctx := context.Background()
	manager := mustCreateUser(t, "Visibility Manager", nil)
	agent := mustCreateUser(t, "Visibility Agent", &manager.UUID)

	// A manager sees itself and its reports.
	visible, err := testDB.SubUsers(ctx, manager.UUID, model.RoleAgent)
	require.NoError(t, err)
	uuids := make(map[uuid.UUID]bool, len(visible))
	for _, u := range visible {
		uuids[u.UUID] = true
	}
	assert.True(t, uuids[manager.UUID])
	assert.True(t, uuids[agent.UUID])

	// An agent sees only itself.
	visible, err = testDB.SubUsers(ctx, agent.UUID, model.RoleAgent)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, agent.UUID, visible[0].UUID)
}

func TestResolveCustomerDedup(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Dedup Owner", nil)
	customer := testCustomer("Dedup Customer")

	id1, created, err := testDB.ResolveCustomer(ctx, owner.UUID, customer)
	require.NoError(t, err)
	assert.True(t, created)

	// Same email resolves to the same person even with a different phone.
	again := customer
	again.PhoneNumber = testCustomer("x").PhoneNumber
	id2, created, err := testDB.ResolveCustomer(ctx, owner.UUID, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	// Exactly one row exists. First writer wins: the fresh payload and the
	// second actor's ownership claim are discarded.
	other := mustCreateUser(t, "Dedup Other", nil)
	id3, created, err := testDB.ResolveCustomer(ctx, other.UUID, customer)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id3)

	customers, err := testDB.ListCustomersByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, customer.FullName, customers[0].FullName)
	assert.Equal(t, customer.Email, customers[0].Email)
}

func TestResolveCustomerRequiresContactFields(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Validation Owner", nil)

	_, _, err := testDB.ResolveCustomer(ctx, owner.UUID, model.Customer{FullName: "No Contact"})
	assert.Error(t, err)
}

func TestResolveCustomerConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Race Owner", nil)
	customer := testCustomer("Race Customer")

	const attempts = 8
	var (
		wg      sync.WaitGroup
		ids     [attempts]int64
		created [attempts]bool
		errs    [attempts]error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], created[i], errs[i] = testDB.ResolveCustomer(ctx, owner.UUID, customer)
		}(i)
	}
	wg.Wait()

	// Every caller resolves to the same row and only one insert happened;
	// losers of the unique-violation race re-look-up and find the winner.
	inserts := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)

	var rows int
	require.NoError(t, testDB.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE email_hash = $1`,
		testutil.TestCodec().Index(customer.Email),
	).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestCustomerFieldsEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Cipher Owner", nil)
	customer := testCustomer("Cipher Customer")

	_, _, err := testDB.ResolveCustomer(ctx, owner.UUID, customer)
	require.NoError(t, err)

	var emailEnc, emailNonce, emailHash []byte
	err = testDB.Pool().QueryRow(ctx,
		`SELECT email_enc, email_nonce, email_hash FROM customers
		 ORDER BY id DESC LIMIT 1`).Scan(&emailEnc, &emailNonce, &emailHash)
	require.NoError(t, err)

	assert.NotContains(t, string(emailEnc), customer.Email)
	assert.Len(t, emailNonce, 12)
	assert.Len(t, emailHash, 32)

	// Reading back through the storage layer decrypts.
	customers, err := testDB.ListCustomersByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, customer.Email, customers[0].Email)
	assert.Equal(t, customer.PhoneNumber, customers[0].PhoneNumber)
}

func TestUpdateCustomerKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Update Owner", nil)
	customer := testCustomer("Update Customer")

	_, _, err := testDB.ResolveCustomer(ctx, owner.UUID, customer)
	require.NoError(t, err)
	stored, err := testDB.ListCustomersByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	update := model.Customer{Address: "Szeged, Kossuth tér 2."}
	require.NoError(t, testDB.UpdateCustomer(ctx, stored[0].UUID, update))

	got, err := testDB.GetCustomer(ctx, stored[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, "Szeged, Kossuth tér 2.", got.Address)
	assert.Equal(t, customer.Email, got.Email)
	assert.Equal(t, customer.FullName, got.FullName)
}

func TestCreateContractWithNewCustomer(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Contract Owner", nil)
	customer := testCustomer("Contract Customer")
	contract := model.Contract{
		ContractNumber:   uniq("CN"),
		ContractType:     model.ContractLifeProgram,
		AnnualFee:        120000,
		PaymentFrequency: model.PayMonthly,
		PaymentMethod:    model.PayTransfer,
	}

	contractUUID, err := testDB.CreateContract(ctx, owner.UUID, customer, contract)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, contractUUID)

	// One customer row and one contract row, joined in the list view with
	// decrypted contact fields.
	list, err := testDB.ListContractsByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, contract.ContractNumber, list[0].ContractNumber)
	assert.Equal(t, model.ContractLifeProgram, list[0].ContractType)
	assert.Equal(t, customer.FullName, list[0].CustomerName)
	assert.Equal(t, customer.Email, list[0].CustomerEmail)

	customers, err := testDB.ListCustomersByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	// The contract points back to that customer.
	customerUUID, err := testDB.ContractCustomerUUID(ctx, contractUUID)
	require.NoError(t, err)
	assert.Equal(t, customers[0].UUID, customerUUID)
}

func TestCreateContractDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Contract Dup Owner", nil)
	number := uniq("CN")
	contract := model.Contract{
		ContractNumber:   number,
		ContractType:     model.ContractCasco,
		PaymentFrequency: model.PayAnnual,
		PaymentMethod:    model.PayDirectDebit,
	}

	_, err := testDB.CreateContract(ctx, owner.UUID, testCustomer("Dup A"), contract)
	require.NoError(t, err)

	_, err = testDB.CreateContract(ctx, owner.UUID, testCustomer("Dup B"), contract)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestCreateContractConcurrentCustomerRace(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Contract Race Owner", nil)
	customer := testCustomer("Contract Race Customer")
	numbers := [2]string{uniq("CN"), uniq("CN")}

	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = testDB.CreateContract(ctx, owner.UUID, customer, model.Contract{
				ContractNumber:   numbers[i],
				ContractType:     model.ContractLifeProgram,
				AnnualFee:        60000,
				PaymentFrequency: model.PayMonthly,
				PaymentMethod:    model.PayTransfer,
			})
		}(i)
	}
	wg.Wait()

	// Distinct contract numbers, same person: a customer dedup collision is
	// retried rather than surfaced, so both contracts land on one row.
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	emailHash := testutil.TestCodec().Index(customer.Email)
	var customers, contracts int
	require.NoError(t, testDB.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE email_hash = $1`, emailHash,
	).Scan(&customers))
	require.NoError(t, testDB.Pool().QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM customer_contracts cc
		 JOIN customers c ON c.id = cc.customer_id
		 WHERE c.email_hash = $1`, emailHash,
	).Scan(&contracts))
	assert.Equal(t, 1, customers)
	assert.Equal(t, 2, contracts)
}

func TestSetFirstPayment(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "First Payment Owner", nil)
	contractUUID, err := testDB.CreateContract(ctx, owner.UUID, testCustomer("FP Customer"), model.Contract{
		ContractNumber:   uniq("CN"),
		ContractType:     model.ContractKgfb,
		PaymentFrequency: model.PayAnnual,
		PaymentMethod:    model.PayCheck,
	})
	require.NoError(t, err)

	require.NoError(t, testDB.SetFirstPayment(ctx, contractUUID, true))
	got, err := testDB.GetContract(ctx, contractUUID)
	require.NoError(t, err)
	assert.True(t, got.FirstPayment)

	assert.ErrorIs(t, testDB.SetFirstPayment(ctx, uuid.New(), true), storage.ErrNotFound)
}

func TestReassignCustomers(t *testing.T) {
	ctx := context.Background()
	from := mustCreateUser(t, "Reassign From", nil)
	to := mustCreateUser(t, uniq("Reassign To"), nil)

	var ids []uuid.UUID
	var emails []string
	for i := 0; i < 3; i++ {
		c := testCustomer(fmt.Sprintf("Reassign Customer %d", i))
		emails = append(emails, c.Email)
		_, _, err := testDB.ResolveCustomer(ctx, from.UUID, c)
		require.NoError(t, err)
	}
	stored, err := testDB.ListCustomersByOwner(ctx, from.UUID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, c := range stored {
		ids = append(ids, c.UUID)
	}

	require.NoError(t, testDB.ReassignCustomers(ctx, to.Info.FullName, ids))

	remaining, err := testDB.ListCustomersByOwner(ctx, from.UUID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	moved, err := testDB.ListCustomersByOwner(ctx, to.UUID)
	require.NoError(t, err)
	require.Len(t, moved, 3)
	gotEmails := make(map[string]bool, 3)
	for _, c := range moved {
		gotEmails[c.Email] = true
	}
	for _, e := range emails {
		assert.True(t, gotEmails[e], "customer %s should keep its contact data", e)
	}
}

func TestReassignUnknownOwner(t *testing.T) {
	err := testDB.ReassignCustomers(context.Background(), "Nobody At All", []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, storage.ErrActorNotFound)
}

func TestReassignAmbiguousOwner(t *testing.T) {
	name := uniq("Ambiguous Name")
	mustCreateUser(t, name, nil)
	mustCreateUser(t, name, nil)

	err := testDB.ReassignContracts(context.Background(), name, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, storage.ErrAmbiguousOwner)
}

func TestLeadLifecycle(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Lead Owner", nil)

	leadUUID, err := testDB.CreateLead(ctx, owner.UUID, testCustomer("Lead Customer"), model.Lead{
		LeadType:    "Inbound",
		InquiryType: "Insurance",
		Status:      model.LeadOpened,
	})
	require.NoError(t, err)

	require.NoError(t, testDB.UpdateLeadStatus(ctx, leadUUID, model.LeadClosed))

	leads, err := testDB.ListLeadsByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, model.LeadClosed, leads[0].Status)
	assert.NotEmpty(t, leads[0].CustomerEmail)
}

func TestReassignLeads(t *testing.T) {
	ctx := context.Background()
	from := mustCreateUser(t, uniq("Lead From"), nil)
	to := mustCreateUser(t, uniq("Lead To"), nil)

	_, err := testDB.CreateLead(ctx, from.UUID, testCustomer("Reassigned Lead Customer"), model.Lead{
		LeadType:    "Inbound",
		InquiryType: "Insurance",
		Status:      model.LeadOpened,
	})
	require.NoError(t, err)

	leads, err := testDB.ListLeadsByOwner(ctx, from.UUID)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	require.NoError(t, testDB.ReassignLeads(ctx, to.Info.FullName, []uuid.UUID{leads[0].UUID}))

	remaining, err := testDB.ListLeadsByOwner(ctx, from.UUID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	moved, err := testDB.ListLeadsByOwner(ctx, to.UUID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, leads[0].UUID, moved[0].UUID)
}

func TestInterventionTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Task Owner", nil)

	taskUUID, err := testDB.CreateInterventionTask(ctx, owner.UUID, testCustomer("Task Customer"), model.InterventionTask{
		ContractNumber:     uniq("CN"),
		ProductName:        "LifeProgram",
		OutstandingDays:    30,
		Balance:            45000,
		ProcessingDeadline: time.Now().UTC().Add(14 * 24 * time.Hour),
		Status:             model.TaskPending,
	})
	require.NoError(t, err)

	got, err := testDB.GetInterventionTask(ctx, taskUUID)
	require.NoError(t, err)
	got.Status = model.TaskProcessed
	got.Comment = "settled by phone"
	require.NoError(t, testDB.UpdateInterventionTask(ctx, taskUUID, got))

	got, err = testDB.GetInterventionTask(ctx, taskUUID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskProcessed, got.Status)
	assert.Equal(t, "settled by phone", got.Comment)
}

func TestMeetingsByMonth(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Meeting Owner", nil)

	march := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{march, april} {
		_, err := testDB.CreateMeeting(ctx, owner.UUID, model.Meeting{
			MeetDate:    d,
			FullName:    "Meeting Person",
			PhoneNumber: testCustomer("m").PhoneNumber,
			Location:    "office",
			Type:        model.MeetConsultation,
		})
		require.NoError(t, err)
	}

	meetings, err := testDB.ListMeetingsByMonth(ctx, owner.UUID, 3)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.WithinDuration(t, march, meetings[0].MeetDate, time.Second)
	assert.NotEmpty(t, meetings[0].PhoneNumber)

	require.NoError(t, testDB.SetMeetingCompleted(ctx, meetings[0].UUID, true))
	got, err := testDB.GetMeeting(ctx, meetings[0].UUID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
}

func TestMeetingDateCharts(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Meeting Chart Owner", nil)

	monday := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	august := time.Date(2026, time.August, 5, 10, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{monday, tuesday, august} {
		_, err := testDB.CreateMeeting(ctx, owner.UUID, model.Meeting{
			MeetDate:    d,
			FullName:    "Chart Person",
			PhoneNumber: testCustomer("mc").PhoneNumber,
			Location:    "office",
			Type:        model.MeetService,
		})
		require.NoError(t, err)
	}

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC)

	week, err := testDB.MeetingWeekdayChart(ctx, &owner.UUID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1), week.Monday)
	assert.Equal(t, int64(1), week.Tuesday)
	assert.Equal(t, int64(1), week.Wednesday)
	assert.Zero(t, week.Friday)

	month, err := testDB.MeetingMonthChart(ctx, &owner.UUID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), month.March)
	assert.Equal(t, int64(1), month.August)
	assert.Zero(t, month.May)

	// A narrower window drops the August meeting.
	week, err = testDB.MeetingWeekdayChart(ctx, &owner.UUID, from,
		time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, week.Wednesday)
}

func TestRecommendationDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Recommendation Owner", nil)
	rec := model.Recommendation{
		FullName:     uniq("Recommended Person"),
		PhoneNumber:  testCustomer("r").PhoneNumber,
		City:         "Debrecen",
		ReferralName: "Referrer",
	}

	_, err := testDB.CreateRecommendation(ctx, owner.UUID, rec)
	require.NoError(t, err)

	dup := rec
	dup.FullName = uniq("Recommended Other")
	_, err = testDB.CreateRecommendation(ctx, owner.UUID, dup)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestRecruitmentDuplicate(t *testing.T) {
	ctx := context.Background()
	rec := model.Recruitment{
		FullName:    uniq("Candidate"),
		Email:       uniq("candidate") + "@example.com",
		PhoneNumber: testCustomer("rc").PhoneNumber,
		Description: "referral from spring campaign",
	}

	recUUID, err := testDB.CreateRecruitment(ctx, rec)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, recUUID)

	// Same email, everything else fresh.
	dup := rec
	dup.FullName = uniq("Candidate")
	dup.PhoneNumber = testCustomer("rc").PhoneNumber
	_, err = testDB.CreateRecruitment(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := testDB.GetRecruitment(ctx, recUUID)
	require.NoError(t, err)
	assert.Equal(t, rec.Email, got.Email)
	assert.Equal(t, rec.PhoneNumber, got.PhoneNumber)
}

func TestProductionCharts(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Chart Owner", nil)

	for i := 0; i < 2; i++ {
		_, err := testDB.CreateContract(ctx, owner.UUID, testCustomer(fmt.Sprintf("Chart Customer %d", i)), model.Contract{
			ContractNumber:   uniq("CN"),
			ContractType:     model.ContractHealthProgram,
			AnnualFee:        50000,
			PaymentFrequency: model.PayMonthly,
			PaymentMethod:    model.PayCreditCard,
		})
		require.NoError(t, err)
	}

	count, err := testDB.ProductionCount(ctx, &owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	value, err := testDB.ProductionValue(ctx, &owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), value)

	chart, err := testDB.PortfolioChart(ctx, &owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), chart.HealthProgram)
	assert.Zero(t, chart.Casco)

	// Org-wide totals include at least this owner's production.
	orgCount, err := testDB.ProductionCount(ctx, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, orgCount, int64(2))
}

func TestDeleteCustomerCascades(t *testing.T) {
	ctx := context.Background()
	owner := mustCreateUser(t, "Cascade Owner", nil)

	_, err := testDB.CreateContract(ctx, owner.UUID, testCustomer("Cascade Customer"), model.Contract{
		ContractNumber:   uniq("CN"),
		ContractType:     model.ContractTravelInsurance,
		PaymentFrequency: model.PayAnnual,
		PaymentMethod:    model.PayTransfer,
	})
	require.NoError(t, err)

	customers, err := testDB.ListCustomersByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	require.NoError(t, testDB.DeleteCustomers(ctx, []uuid.UUID{customers[0].UUID}))

	contracts, err := testDB.ListContractsByOwner(ctx, owner.UUID)
	require.NoError(t, err)
	assert.Empty(t, contracts)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	user := mustCreateUser(t, "Delete Me", nil)

	require.NoError(t, testDB.DeleteUser(ctx, user.UUID))
	assert.ErrorIs(t, testDB.DeleteUser(ctx, user.UUID), storage.ErrNotFound)
}

func TestDeleteUserRetainsOwnedRecords(t *testing.T) {
	ctx := context.Background()
	user := mustCreateUser(t, uniq("Owner With Records"), nil)
	heir := mustCreateUser(t, uniq("Record Heir"), nil)

	_, _, err := testDB.ResolveCustomer(ctx, user.UUID, testCustomer("Attached Customer"))
	require.NoError(t, err)

	assert.ErrorIs(t, testDB.DeleteUser(ctx, user.UUID), storage.ErrRecordsAttached)

	stored, err := testDB.ListCustomersByOwner(ctx, user.UUID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NoError(t, testDB.ReassignCustomers(ctx, heir.Info.FullName, []uuid.UUID{stored[0].UUID}))

	require.NoError(t, testDB.DeleteUser(ctx, user.UUID))
}
