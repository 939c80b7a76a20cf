//go:build ignore

// Package main generates a synthetic knowledge base corpus for exercising
// document sync and indexing runs against a scratch bucket.
// Usage: go run scripts/generate-test-corpus.go -files 200 -output testdata/corpus
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	numFiles  = flag.Int("files", 200, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Document templates. Indexed verbs so each generator only has to line
// up one argument list.
var guideTemplate = `# %[1]s: %[2]s

_Last reviewed: %[3]s_

## Summary

This guide walks through how to %[4]s %[2]s for the %[5]s team. Each
step assumes the previous one completed cleanly; if a step fails, stop
and check the troubleshooting table before retrying.

## Prerequisites

- Access to the %[1]s console with an operator role
- The team CLI, version %[6]d.%[7]d or later
- A maintenance window if the change affects production traffic

## Steps

1. Open the %[1]s dashboard and select the target workspace.
2. Under Settings, choose %[2]s and review the current state.
3. Apply the change and wait for the status to read "active".
4. Confirm the audit log recorded the change under your user id.

## Troubleshooting

| Symptom | Likely cause | Fix |
|---------|--------------|-----|
| Status stuck in "pending" | Propagation delay | Wait five minutes, then refresh |
| Permission denied | Missing operator role | Ask the %[5]s lead to grant access |
| Change reverted overnight | Config drift job | File a ticket with the %[5]s team |

## Related pages

- %[1]s overview
- %[2]s policy reference
`

var faqTemplate = `%[1]s FAQ
%[2]s

Q: Who can %[3]s %[4]s?
A: Anyone with an operator role on the %[1]s console. Members of the
   %[5]s team have this by default; everyone else requests it through
   the access portal.

Q: How long does a change take to apply?
A: Most changes propagate within a minute. Changes that touch %[4]s
   can take up to fifteen minutes during busy hours.

Q: Is there an approval step?
A: Yes. Production changes to %[4]s need a second approver from the
   %[5]s team. Staging changes apply immediately.

Q: Where do I check the history?
A: The audit view on the %[1]s dashboard lists every change with the
   actor, the timestamp and the before/after values.

Q: What happens if I get it wrong?
A: Use the revert button on the change record, or ask the on-call to
   %[3]s it back. Nothing here is irreversible.
`

var runbookTemplate = `# Runbook: %[1]s %[2]s degradation

Severity guide: page if customer-facing for more than %[3]d minutes.

## Detection

- The "%[1]s %[2]s error rate" alert fires at 2%% over five minutes.
- Dashboards: %[1]s overview, %[2]s latency breakdown.
- Reports from the %[4]s team count as detection too; log the time.

## Mitigation

1. Check the last deploy to %[1]s; roll back if it landed within the
   incident window.
2. If rollback is not possible, %[5]s the affected component and shift
   traffic to the standby region.
3. Watch the error rate for ten minutes before declaring recovery.

## Escalation

- Primary: %[4]s on-call
- Secondary: %[1]s service owner
- If data loss is suspected, page the data team and stop all writes
  before anything else.

## After the incident

File the review within two working days. Include the detection time,
the first mitigation step taken, and whether the alert fired before a
human noticed.
`

var noteTemplate = `%[1]s release %[2]d.%[3]d

Highlights

* %[4]s is now %[5]sd by default for new workspaces.
* The %[1]s console shows propagation state per region.
* Bulk operations no longer time out on workspaces with more than
  10,000 members.

Fixes

* Fixed a case where %[4]s changes were applied twice when retried.
* The audit view sorts correctly across daylight-saving boundaries.
* CLI exit codes are now distinct for auth and validation failures.

Upgrade notes

No action needed. Workspaces pinned to an older policy keep the pinned
behavior until the pin is removed.
`

// Word pools for generating realistic document names and content.
var (
	systems = []string{
		"Payments", "Identity", "Ingest", "Catalog", "Billing",
		"Directory", "Gateway", "Scheduler", "Ledger", "Archive",
		"Notifier", "Registry", "Metering", "Exports", "Provisioning",
	}
	topics = []string{
		"key rotation", "access control", "single sign-on", "data retention",
		"backups", "alerting", "quota management", "certificate renewal",
		"capacity planning", "incident response", "deployments", "rollbacks",
		"auditing", "reporting", "onboarding", "offboarding",
	}
	teams = []string{
		"platform", "support", "finance", "security",
		"operations", "data", "infrastructure", "compliance",
	}
	// All end in "e" so the release-note template can append "d".
	actions = []string{
		"enable", "disable", "rotate", "migrate", "upgrade",
		"restore", "configure", "archive", "delegate", "automate",
	}
)

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	subdirs := []string{"guides", "faq", "runbooks", "notes"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d documents in %s...\n", *numFiles, *outputDir)

	// Distribute documents across kinds.
	guideFiles := *numFiles * 40 / 100
	faqFiles := *numFiles * 30 / 100
	runbookFiles := *numFiles * 20 / 100
	noteFiles := *numFiles - guideFiles - faqFiles - runbookFiles

	generated := 0

	for i := 0; i < guideFiles; i++ {
		if err := generateGuide(r, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating guide %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < faqFiles; i++ {
		if err := generateFAQ(r, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating FAQ %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < runbookFiles; i++ {
		if err := generateRunbook(r, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating runbook %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < noteFiles; i++ {
		if err := generateNote(r, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating release note %d: %v\n", i, err)
		}
		generated++
	}

	fmt.Printf("Generated %d documents successfully.\n", generated)
}

func randomWord(r *rand.Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}

// slug turns a display phrase into a file name fragment.
func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

// reviewDate picks a deterministic date in the first half of 2026.
func reviewDate(r *rand.Rand) string {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, r.Intn(180)).Format("January 2, 2006")
}

func generateGuide(r *rand.Rand, index int) error {
	system := randomWord(r, systems)
	topic := randomWord(r, topics)

	content := fmt.Sprintf(guideTemplate,
		system, topic, reviewDate(r), randomWord(r, actions), randomWord(r, teams),
		2+r.Intn(3), r.Intn(10),
	)

	filename := filepath.Join(*outputDir, "guides",
		fmt.Sprintf("%s-%s-%d.md", slug(system), slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateFAQ(r *rand.Rand, index int) error {
	system := randomWord(r, systems)
	title := system + " FAQ"

	content := fmt.Sprintf(faqTemplate,
		system, strings.Repeat("=", len(title)),
		randomWord(r, actions), randomWord(r, topics), randomWord(r, teams),
	)

	filename := filepath.Join(*outputDir, "faq",
		fmt.Sprintf("%s-faq-%d.txt", slug(system), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateRunbook(r *rand.Rand, index int) error {
	system := randomWord(r, systems)
	topic := randomWord(r, topics)

	content := fmt.Sprintf(runbookTemplate,
		system, topic, 5+5*r.Intn(5), randomWord(r, teams), randomWord(r, actions),
	)

	filename := filepath.Join(*outputDir, "runbooks",
		fmt.Sprintf("%s-%s-%d.md", slug(system), slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateNote(r *rand.Rand, index int) error {
	system := randomWord(r, systems)

	content := fmt.Sprintf(noteTemplate,
		system, 1+r.Intn(4), r.Intn(12),
		randomWord(r, topics), randomWord(r, actions),
	)

	filename := filepath.Join(*outputDir, "notes",
		fmt.Sprintf("%s-release-%d.txt", slug(system), index))
	return os.WriteFile(filename, []byte(content), 0644)
}
