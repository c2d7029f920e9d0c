package webauthn_test

import (
	"testing"
	"time"

	gowebauthn "github.com/go-webauthn/webauthn/webauthn"
	"github.com/openape/openape-go/webauthn"
	"github.com/stretchr/testify/require"
)

func testCredential(id, email string) *webauthn.Credential {
	return &webauthn.Credential{
		CredentialID: id,
		UserEmail:    email,
		PublicKey:    []byte("public-key-bytes"),
		Counter:      1,
		CreatedAt:    time.Now(),
	}
}

func TestInMemoryCredentialRepo(t *testing.T) {
	t.Run("save and find by ID", func(t *testing.T) {
		repo := webauthn.NewInMemoryCredentialRepo()
		require.NoError(t, repo.Save(testCredential("cred-1", "user@example.com")))

		credential, err := repo.FindByID("cred-1")
		require.NoError(t, err)
		require.NotNil(t, credential)
		require.Equal(t, "user@example.com", credential.UserEmail)

		credential, err = repo.FindByID("unknown")
		require.NoError(t, err)
		require.Nil(t, credential)
	})

	t.Run("find by user returns all of the user's credentials", func(t *testing.T) {
		repo := webauthn.NewInMemoryCredentialRepo()
		require.NoError(t, repo.Save(testCredential("cred-1", "user@example.com")))
		require.NoError(t, repo.Save(testCredential("cred-2", "user@example.com")))
		require.NoError(t, repo.Save(testCredential("cred-3", "other@example.com")))

		found, err := repo.FindByUser("user@example.com")
		require.NoError(t, err)
		require.Len(t, found, 2)
	})

	t.Run("update counter", func(t *testing.T) {
		repo := webauthn.NewInMemoryCredentialRepo()
		require.NoError(t, repo.Save(testCredential("cred-1", "user@example.com")))

		require.NoError(t, repo.UpdateCounter("cred-1", 42))
		credential, err := repo.FindByID("cred-1")
		require.NoError(t, err)
		require.Equal(t, uint32(42), credential.Counter)

		require.Error(t, repo.UpdateCounter("unknown", 1))
	})

	t.Run("delete all for user", func(t *testing.T) {
		repo := webauthn.NewInMemoryCredentialRepo()
		require.NoError(t, repo.Save(testCredential("cred-1", "user@example.com")))
		require.NoError(t, repo.Save(testCredential("cred-2", "other@example.com")))

		require.NoError(t, repo.DeleteAllForUser("user@example.com"))
		found, err := repo.FindByUser("user@example.com")
		require.NoError(t, err)
		require.Empty(t, found)

		remaining, err := repo.FindByUser("other@example.com")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	})
}

func TestInMemoryChallengeRepo(t *testing.T) {
	t.Run("consume is single use", func(t *testing.T) {
		repo := webauthn.NewInMemoryChallengeRepo()
		session := &gowebauthn.SessionData{Challenge: "challenge-value"}
		require.NoError(t, repo.Save("token-1", session, time.Now().Add(time.Minute)))

		got, err := repo.Consume("token-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "challenge-value", got.Challenge)

		got, err = repo.Consume("token-1")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("expired sessions are not returned", func(t *testing.T) {
		repo := webauthn.NewInMemoryChallengeRepo()
		require.NoError(t, repo.Save("token-1", &gowebauthn.SessionData{}, time.Now().Add(-time.Second)))

		got, err := repo.Consume("token-1")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		repo := webauthn.NewInMemoryChallengeRepo()
		require.Error(t, repo.Save("", &gowebauthn.SessionData{}, time.Now().Add(time.Minute)))
	})
}

func TestInMemoryRegistrationURLRepo(t *testing.T) {
	t.Run("consume marks the invitation used exactly once", func(t *testing.T) {
		repo := webauthn.NewInMemoryRegistrationURLRepo()
		invitation := webauthn.NewRegistrationURL("user@example.com", "User", "admin", time.Hour)
		require.NoError(t, repo.Save(invitation))

		consumed, err := repo.Consume(invitation.Token)
		require.NoError(t, err)
		require.NotNil(t, consumed)
		require.True(t, consumed.Consumed)

		again, err := repo.Consume(invitation.Token)
		require.NoError(t, err)
		require.Nil(t, again)
	})

	t.Run("expired invitations cannot be consumed", func(t *testing.T) {
		repo := webauthn.NewInMemoryRegistrationURLRepo()
		invitation := webauthn.NewRegistrationURL("user@example.com", "User", "admin", -time.Second)
		require.NoError(t, repo.Save(invitation))

		consumed, err := repo.Consume(invitation.Token)
		require.NoError(t, err)
		require.Nil(t, consumed)
	})

	t.Run("find reflects consumption state", func(t *testing.T) {
		repo := webauthn.NewInMemoryRegistrationURLRepo()
		invitation := webauthn.NewRegistrationURL("user@example.com", "User", "admin", time.Hour)
		require.NoError(t, repo.Save(invitation))

		_, err := repo.Consume(invitation.Token)
		require.NoError(t, err)

		found, err := repo.Find(invitation.Token)
		require.NoError(t, err)
		require.NotNil(t, found)
		require.True(t, found.Consumed)
	})

	t.Run("list returns every invitation", func(t *testing.T) {
		repo := webauthn.NewInMemoryRegistrationURLRepo()
		require.NoError(t, repo.Save(webauthn.NewRegistrationURL("a@example.com", "A", "admin", time.Hour)))
		require.NoError(t, repo.Save(webauthn.NewRegistrationURL("b@example.com", "B", "admin", time.Hour)))

		list, err := repo.List()
		require.NoError(t, err)
		require.Len(t, list, 2)
	})
}
