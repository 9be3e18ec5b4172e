package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInterviewRequest_Validate(t *testing.T) {
	valid := CreateInterviewRequest{
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		RecruiterID:   uuid.New(),
		CandidateID:   uuid.New(),
		RankAtTime:    1,
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.JobID = uuid.Nil
	assert.Error(t, missing.Validate())

	badRank := valid
	badRank.RankAtTime = 0
	assert.Error(t, badRank.Validate())
}

func TestInterviewStatus_IsTerminal(t *testing.T) {
	terminal := []InterviewStatus{StatusCompleted, StatusCancelled, StatusNoShow, StatusExpired}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}

	live := []InterviewStatus{StatusInvitationSent, StatusSlotPending, StatusConfirmed}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), string(s))
	}
}
