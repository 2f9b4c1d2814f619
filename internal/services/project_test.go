package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callerOf(u *models.User) access.Caller {
	return access.Caller{ID: u.ID, Role: access.Role(u.Role)}
}

func TestProjectService_CreateAllocatesSequence(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProjectService(db)
	client := testutil.CreateUser(t, db, "client", models.RoleClient)
	ctx := context.Background()

	first, err := svc.Create(ctx, callerOf(client), &CreateProjectRequest{Title: "Alpha"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, callerOf(client), &CreateProjectRequest{Title: "Beta"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "PRJ-0001", first.DisplayID)
	assert.Equal(t, "PRJ-0002", second.DisplayID)
	assert.True(t, first.IsActive, "projects start active")
	assert.Equal(t, client.ID, first.UserID)
}

func TestProjectService_CreateRules(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProjectService(db)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	client := testutil.CreateUser(t, db, "client", models.RoleClient)
	tester := testutil.CreateUser(t, db, "tester", models.RoleTester)
	ctx := context.Background()

	_, err := svc.Create(ctx, callerOf(tester), &CreateProjectRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, callerOf(client), &CreateProjectRequest{Title: "x", OwnerID: &admin.ID})
	assert.ErrorIs(t, err, ErrForbidden, "only admins pick the owner")

	_, err = svc.Create(ctx, callerOf(admin), &CreateProjectRequest{Title: "x", OwnerID: &tester.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.Create(ctx, callerOf(admin), &CreateProjectRequest{Title: "x", OwnerID: &client.ID})
	require.NoError(t, err)
	assert.Equal(t, client.ID, p.UserID)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = svc.Create(ctx, callerOf(client), &CreateProjectRequest{Title: "x", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProjectService_GetHonoursVisibility(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProjectService(db)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	stranger := testutil.CreateUser(t, db, "stranger", models.RoleClient)
	pending := testutil.CreateUser(t, db, "pending", models.RoleTester)
	now := time.Now()

	p := testutil.CreateProject(t, db, owner.ID, "Secret", 7, now)
	testutil.AddMember(t, db, p.ID, pending.ID, models.RoleTester, testutil.Bool(false))
	ctx := context.Background()

	got, err := svc.Get(ctx, callerOf(owner), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "PRJ-0007", got.DisplayID)
	require.Len(t, got.Members, 1)
	assert.Equal(t, "pending", got.Members[0].User.Username)

	_, err = svc.Get(ctx, callerOf(stranger), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, callerOf(pending), p.ID)
	assert.ErrorIs(t, err, ErrNotFound, "unverified testers do not see the project")
}

func TestProjectService_UpdateAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProjectService(db)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	member := testutil.CreateUser(t, db, "member", models.RoleClient)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())
	testutil.AddMember(t, db, p.ID, member.ID, models.RoleClient, nil)
	ctx := context.Background()

	title := "Renamed"
	_, err := svc.Update(ctx, callerOf(member), p.ID, &UpdateProjectRequest{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden, "members see but do not manage")

	inactive := false
	got, err := svc.Update(ctx, callerOf(owner), p.ID, &UpdateProjectRequest{Title: &title, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, got.IsActive)

	require.NoError(t, svc.Delete(ctx, callerOf(admin), p.ID))
	_, err = svc.Get(ctx, callerOf(admin), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.List(ctx, callerOf(admin), &ProjectListRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestProjectService_ListPaginates(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProjectService(db)
	client := testutil.CreateUser(t, db, "client", models.RoleClient)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		testutil.CreateProject(t, db, client.ID, "Project", i, base.Add(time.Duration(i)*time.Hour))
	}
	ctx := context.Background()

	req := &ProjectListRequest{}
	req.Page.Page = 2
	res, err := svc.List(ctx, callerOf(client), req)
	require.NoError(t, err)
	assert.EqualValues(t, 12, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "PRJ-0002", res.Items[0].DisplayID)
	assert.Equal(t, "PRJ-0001", res.Items[1].DisplayID)
}

func TestMemberService_InviteAndVerify(t *testing.T) {
	db := testutil.NewDB(t)
	queue := NewSyncQueue()
	delivered := make(chan *InvitationTask, 1)
	queue.SetProcessor(func(_ context.Context, task *InvitationTask) error {
		delivered <- task
		return nil
	})
	members := NewMemberService(db, queue)
	projects := NewProjectService(db)

	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	tester := testutil.CreateUser(t, db, "tester", models.RoleTester)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())
	ctx := context.Background()

	m, err := members.Add(ctx, callerOf(owner), p.ID, &AddMemberRequest{UserID: tester.ID})
	require.NoError(t, err)
	assert.True(t, m.Pending())

	select {
	case task := <-delivered:
		assert.Equal(t, m.ID, task.MemberID)
		assert.Equal(t, owner.ID, task.InvitedBy)
	case <-time.After(2 * time.Second):
		t.Fatal("invitation was not enqueued")
	}

	_, err = projects.Get(ctx, callerOf(tester), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	verified, err := members.Verify(ctx, callerOf(tester), p.ID)
	require.NoError(t, err)
	require.NotNil(t, verified.IsVerified)
	assert.True(t, *verified.IsVerified)
	assert.NotNil(t, verified.VerifiedAt)

	_, err = projects.Get(ctx, callerOf(tester), p.ID)
	assert.NoError(t, err)
}

func TestMemberService_AddRules(t *testing.T) {
	db := testutil.NewDB(t)
	members := NewMemberService(db, nil)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	client := testutil.CreateUser(t, db, "client", models.RoleClient)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())
	ctx := context.Background()

	m, err := members.Add(ctx, callerOf(owner), p.ID, &AddMemberRequest{UserID: client.ID})
	require.NoError(t, err)
	assert.Nil(t, m.IsVerified, "clients join without a verification flag")

	_, err = members.Add(ctx, callerOf(owner), p.ID, &AddMemberRequest{UserID: client.ID})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = members.Add(ctx, callerOf(owner), p.ID, &AddMemberRequest{UserID: admin.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = members.Add(ctx, callerOf(client), p.ID, &AddMemberRequest{UserID: admin.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := members.List(ctx, callerOf(client), p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, members.Remove(ctx, callerOf(owner), p.ID, m.ID))
	_, err = members.List(ctx, callerOf(client), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemberService_UpdateFlag(t *testing.T) {
	db := testutil.NewDB(t)
	members := NewMemberService(db, nil)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	tester := testutil.CreateUser(t, db, "tester", models.RoleTester)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())
	m := testutil.AddMember(t, db, p.ID, tester.ID, models.RoleTester, testutil.Bool(false))
	ctx := context.Background()

	got, err := members.Update(ctx, callerOf(owner), p.ID, m.ID, &UpdateMemberRequest{IsVerified: nil})
	require.NoError(t, err)
	assert.Nil(t, got.IsVerified)

	list, err := members.List(ctx, callerOf(tester), p.ID)
	require.NoError(t, err, "a cleared flag makes the project visible")
	assert.Len(t, list, 1)
}

func TestMemberService_VerifyWithoutMembership(t *testing.T) {
	db := testutil.NewDB(t)
	members := NewMemberService(db, nil)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	tester := testutil.CreateUser(t, db, "tester", models.RoleTester)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())

	_, err := members.Verify(context.Background(), callerOf(tester), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
