package claims

import (
	"testing"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestDecodeAndExtract(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"organization": " ACME ",
		"autorisation": []any{"Read_Country", " write_country ", "", 42},
		"group_permissions": map[string]any{
			"Show_Country":   []any{"read_country"},
			"manage_country": "write_country",
			"empty":          []any{"", "  "},
			"":               []any{"x"},
			"broken":         map[string]any{"a": "b"},
		},
	})

	decoded, err := NewDecoder().Decode(raw)
	require.NoError(t, err)

	ex := NewExtractor()
	tenant, err := ex.Tenant(decoded)
	require.NoError(t, err)
	require.Equal(t, domain.TenantID("acme"), tenant)

	perms := ex.Permissions(decoded)
	require.Equal(t, []string{"read_country", "write_country"}, perms.Sorted())

	groups := ex.Groups(decoded)
	require.Len(t, groups, 2)
	require.Equal(t, []string{"read_country"}, groups["show_country"].Sorted())
	require.Equal(t, []string{"write_country"}, groups["manage_country"].Sorted())

	principal := ex.Principal(decoded)
	require.Equal(t, "user-1", principal.Subject)
	require.Equal(t, domain.TenantID("acme"), principal.TenantID)
	require.True(t, principal.Authenticated())
}

func TestTenantClaimErrors(t *testing.T) {
	ex := NewExtractor()
	cases := []map[string]any{
		{},
		{"organization": nil},
		{"organization": ""},
		{"organization": 12},
		{"organization": "   "},
	}
	for _, c := range cases {
		_, err := ex.Tenant(c)
		require.ErrorIs(t, err, domain.ErrInvalidTenant, "claims %v", c)
	}
}

func TestMalformedShapesDegradeToEmpty(t *testing.T) {
	ex := NewExtractor()
	claims := map[string]any{
		"autorisation":      map[string]any{"a": "b"},
		"group_permissions": []any{"admin"},
	}
	require.Empty(t, ex.Permissions(claims))
	require.Empty(t, ex.Groups(claims))

	principal := ex.Principal(map[string]any{"sub": "  "})
	require.False(t, principal.Authenticated())
}

func TestCustomClaimNames(t *testing.T) {
	ex := NewExtractor(WithTenantClaim("org"), WithPermissionsClaim("perms"), WithGroupsClaim("groups"))
	claims := map[string]any{
		"org":    "Globex",
		"perms":  "admin",
		"groups": map[string]any{"root": []any{"admin"}},
	}
	tenant, err := ex.Tenant(claims)
	require.NoError(t, err)
	require.Equal(t, domain.TenantID("globex"), tenant)
	require.True(t, ex.Permissions(claims).Has("admin"))
	require.Contains(t, ex.Groups(claims), "root")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := NewDecoder().Decode("not-a-token")
	require.ErrorIs(t, err, ErrMalformedToken)
	_, err = NewDecoder().Decode("")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer   abc "))
	require.Equal(t, "", BearerToken("Basic abc"))
	require.Equal(t, "", BearerToken(""))
}
