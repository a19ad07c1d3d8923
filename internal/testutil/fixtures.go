// Package testutil provides shared test fixtures and keys for scrub tests.
package testutil

// LeakyReport is a bug report excerpt carrying one value for several rule
// families. SanitizedReport is what the default registry turns it into.
const (
	LeakyReport = "Repro on 10.1.2.3 as admin@contoso.com with password=hunter22\n" +
		"conn: Server=sql01;Database=Orders;User ID=app;Password=p@ss\n"

	SanitizedReport = "Repro on [REDACTED-IP] as [REDACTED-EMAIL] with password=[REDACTED-PASSWORD]\n" +
		"conn: [REDACTED-CONNECTION-STRING]\n"
)

// LeakyReportLog is the log of sanitizing LeakyReport, in rule order.
var LeakyReportLog = []string{
	"Removed 1 connection string(s)",
	"Removed 1 password(s)",
	"Removed 1 email address(es)",
	"Removed 1 IP address(es)",
}
