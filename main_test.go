package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sola-lending/library"
	"sola-lending/library/credential"
)

var cliNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.Local)

const password = "Str0ng!Pass"

func cliEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"SOLA_DATA_DIR", "SOLA_CATALOGUE_FILE", "SOLA_LOAN_FILE", "SOLA_ACCOUNT_FILE",
		"SOLA_SETTLE_DELAY", "SOLA_LOG_FORMAT", "SOLA_ADMIN_PASSWORD_HASH", "SOLA_FINE_SCHEDULE"} {
		t.Setenv(k, "")
	}
	t.Setenv("SOLA_BCRYPT_COST", "4")
	t.Setenv("SOLA_LOG_LEVEL", "error")
	return t.TempDir()
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errb bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out, &errb)
	a.clock = func() time.Time { return cliNow }
	root := a.rootCmd()
	root.SetArgs(append([]string{"--data-dir", dir, "--env-file", filepath.Join(dir, "absent.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func register(t *testing.T, dir, username string) string {
	t.Helper()
	out, err := run(t, dir, password+"\n"+password+"\n",
		"register", "--username", username, "--first-name", "Ann", "--last-name", "Lee")
	require.NoError(t, err)
	fields := strings.Fields(out[strings.Index(out, "Registered account"):])
	require.GreaterOrEqual(t, len(fields), 3)
	return fields[2]
}

func writeCatalogue(t *testing.T, dir string, titles ...string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Title,Category,Language,Year Published,STD_NO,Author,Type,Audio Format,Status\n")
	for _, title := range titles {
		sb.WriteString(title + ",Fiction,English,1965,,Frank Herbert,Book,,available\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CatalogueItems.csv"), []byte(sb.String()), 0o644))
}

func TestRegisterAndLogin(t *testing.T) {
	dir := cliEnv(t)
	acct := register(t, dir, "Ann")
	assert.True(t, strings.HasPrefix(acct, "20240615"))

	out, err := run(t, dir, password+"\n", "login", "ann")
	require.NoError(t, err)
	assert.Contains(t, out, "Account:  "+acct)
	assert.Contains(t, out, "Fine:     0.00")
	assert.Contains(t, out, "No items on loan.")

	_, err = run(t, dir, "nope\n", "login", "ann")
	assert.ErrorIs(t, err, library.ErrInvalidCredentials)
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	dir := cliEnv(t)
	_, err := run(t, dir, password+"\nOther!Pass1\n", "register", "--username", "ann", "--first-name", "A", "--last-name", "L")
	assert.ErrorIs(t, err, library.ErrInvalidInput)
}

func TestBorrowPromptsOnAmbiguousTitle(t *testing.T) {
	dir := cliEnv(t)
	writeCatalogue(t, dir, "Dune Messiah", "Children of Dune")
	acct := register(t, dir, "ann")

	out, err := run(t, dir, password+"\n2\n", "borrow", acct, "dune")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Dune Messiah")
	assert.Contains(t, out, "Borrowed 'Children of Dune', due 06/07/2024")

	out, err = run(t, dir, password+"\n", "held", acct)
	require.NoError(t, err)
	assert.Contains(t, out, "Children of Dune")

	_, err = run(t, dir, password+"\n", "return", acct, "Children", "of", "Dune")
	require.NoError(t, err)
	_, err = run(t, dir, password+"\n", "return", acct, "Children of Dune")
	assert.ErrorIs(t, err, library.ErrAlreadyAvailable)
}

func TestAdminCommandsRequireAdminPassword(t *testing.T) {
	dir := cliEnv(t)
	_, err := run(t, dir, "x\n", "admin", "add-item", "--title", "Dune")
	assert.Error(t, err, "no admin hash configured")

	hash, err := credential.NewHasher(4).Hash("Adm1n!Pass")
	require.NoError(t, err)
	t.Setenv("SOLA_ADMIN_PASSWORD_HASH", hash)

	_, err = run(t, dir, "wrong\n", "admin", "add-item", "--title", "Dune")
	assert.ErrorIs(t, err, library.ErrInvalidCredentials)

	out, err := run(t, dir, "Adm1n!Pass\n", "admin", "add-item", "--title", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 'Dune'")

	out, err = run(t, dir, "", "search", "herbert")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")

	out, err = run(t, dir, "p\np\n", "admin", "hash-password")
	require.NoError(t, err)
	assert.Contains(t, out, "$2a$04$")
}

func TestFinesReportJSON(t *testing.T) {
	dir := cliEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UserData.csv"), []byte(
		"Account Number,First Name,Last Name,Username,Rented Items,Fines,HashedPassword\n"+
			"202406150001,Ann,Lee,ann,[],3.50,\n"+
			"202406150002,Ben,Ray,ben,[],0,\n"), 0o644))

	csvPath := filepath.Join(dir, "report.csv")
	out, err := run(t, dir, "", "fines", "report", "--json", "--csv", csvPath)
	require.NoError(t, err)

	var rep struct {
		Count   int `json:"count"`
		Entries []struct {
			Username string `json:"username"`
		} `json:"entries"`
	}
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(out, &rep))
	assert.Equal(t, 1, rep.Count)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, "ann", rep.Entries[0].Username)

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "202406150001,ann,Ann,Lee,3.50")
}
