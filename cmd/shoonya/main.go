package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/certify"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/config"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/execute"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/lifecycle"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/logging"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/safety"
)

const (
	Version = "1.0.0"
	AppName = "Shoonya Wipe"

	// Exit codes
	EXIT_SUCCESS = 0
	EXIT_ERROR   = 1
	EXIT_WARNING = 2
)

var (
	cfg    *config.Config
	logger *logging.AuditLogger

	configPath    string
	verbose       bool
	inventoryPath string

	// Policy flags shared by decide and wipe.
	noReuse        bool
	leavesCustody  bool
	sensitivityStr string
	overrideMethod string
	overrideTech   string
	markEncrypted  bool
	markAlwaysEnc  bool

	modeStr       string
	assumeYes     bool
	operatorName  string
	operatorTitle string
	pubkeyPath    string

	exitCode = EXIT_SUCCESS

	headline = color.New(color.FgCyan, color.Bold)
	okColor  = color.New(color.FgGreen)
	warnClr  = color.New(color.FgYellow)
	errClr   = color.New(color.FgRed)
)

var rootCmd = &cobra.Command{
	Use:     "shoonya",
	Short:   "Shoonya Wipe - NIST SP 800-88 media sanitization",
	Long:    "Secure data sanitization with method selection per NIST SP 800-88 Rev. 2 and signed erasure certificates",
	Version: Version,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List storage devices and their wear state",
	RunE:  runInfo,
}

var decideCmd = &cobra.Command{
	Use:   "decide <device>",
	Short: "Recommend a sanitization method for a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecide,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe <device>",
	Short: "Sanitize a device and issue a signed certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runWipe,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <certificate.json>",
	Short: "Verify a signed erasure certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the signing keypair, creating it on first use",
	RunE:  runKeys,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&inventoryPath, "inventory", "", "Read devices from an inventory JSON file instead of the host")

	for _, cmd := range []*cobra.Command{decideCmd, wipeCmd} {
		cmd.Flags().BoolVar(&noReuse, "no-reuse", false, "Media will not be reused (recommends destruction)")
		cmd.Flags().BoolVar(&leavesCustody, "leaves-custody", false, "Media leaves organizational custody")
		cmd.Flags().StringVar(&sensitivityStr, "sensitivity", "moderate", "Data sensitivity (low/moderate/high)")
		cmd.Flags().StringVar(&overrideMethod, "method", "", "Override the recommended method (Clear/Purge/Destroy)")
		cmd.Flags().StringVar(&overrideTech, "technique", "", "Override the recommended technique")
		cmd.Flags().BoolVar(&markEncrypted, "encrypted", false, "Device contents are encrypted")
		cmd.Flags().BoolVar(&markAlwaysEnc, "always-encrypted", false, "Encryption was enabled for the device's whole service life")
	}

	wipeCmd.Flags().StringVar(&modeStr, "mode", "simulated", "Execution mode (simulated/real)")
	wipeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the preview prompt (the real-mode challenge still applies)")
	wipeCmd.Flags().StringVar(&operatorName, "operator", "", "Operator name for the certificate")
	wipeCmd.Flags().StringVar(&operatorTitle, "title", "", "Operator title for the certificate")

	verifyCmd.Flags().StringVar(&pubkeyPath, "pubkey", "", "Public key PEM (defaults to the configured keys directory)")

	rootCmd.AddCommand(infoCmd, decideCmd, wipeCmd, verifyCmd, keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errClr.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(EXIT_ERROR)
	}
	os.Exit(exitCode)
}

// setup loads configuration and the audit logger; every command starts here.
func setup() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err = logging.NewAuditLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("initialize audit log: %w", err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func collectProfiles(ctx context.Context) ([]device.Profile, error) {
	if inventoryPath != "" {
		return device.CollectFile(inventoryPath)
	}
	return device.NewCollector().Collect(ctx)
}

// resolveProfile finds the target in the inventory, synthesizing a virtual
// profile for plain files so image extents can be wiped in simulated mode.
func resolveProfile(ctx context.Context, target string) (device.Profile, error) {
	profiles, err := collectProfiles(ctx)
	if err == nil {
		if p, ok := device.Find(profiles, target); ok {
			return applyEncryptionFlags(p), nil
		}
	}
	if !strings.HasPrefix(target, "/dev/") {
		if p, ferr := device.FileProfile(target); ferr == nil {
			return applyEncryptionFlags(p), nil
		}
	}
	if err != nil {
		return device.Profile{}, fmt.Errorf("device %s not found and inventory unavailable: %w", target, err)
	}
	return device.Profile{}, fmt.Errorf("device %s not found in inventory", target)
}

// applyEncryptionFlags merges the operator's encryption attestation into the
// profile; the inventory cannot observe it.
func applyEncryptionFlags(p device.Profile) device.Profile {
	if markEncrypted {
		p.IsEncrypted = true
	}
	if markAlwaysEnc {
		p.IsEncrypted = true
		p.WasAlwaysEncrypted = true
	}
	return p
}

func buildPolicy() decision.Policy {
	pol := decision.Policy{
		WillReuse:     !noReuse,
		LeavesCustody: leavesCustody,
		Sensitivity:   decision.ParseSensitivity(sensitivityStr),
	}
	if overrideMethod != "" || overrideTech != "" {
		pol.Override = &decision.Override{
			Method:    decision.Method(overrideMethod),
			Technique: decision.Technique(overrideTech),
		}
	}
	return pol
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	profiles, err := collectProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		warnClr.Println("No storage devices found")
		return nil
	}

	assessor := lifecycle.NewAssessor()
	headline.Printf("%s v%s - storage devices\n\n", AppName, Version)
	for _, p := range profiles {
		fmt.Printf("%-14s %-28s %-10s %s\n", p.Path, p.Model, p.Size, p.MediaTypeLabel())
		if verbose {
			fmt.Printf("  serial: %s  transport: %s  manufacturer: %s\n", p.Serial, p.Transport, p.Manufacturer())
		}

		wear, err := assessor.Assess(ctx, p.Path)
		if err != nil {
			return err
		}
		label := "measured"
		if wear.Estimated {
			label = "estimated"
		}
		fmt.Printf("  wear: %.0f%% used (%s, %s) - %s\n", wear.PercentUsed, wear.Health, label, wear.Recommendation)
	}
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	profile, err := resolveProfile(ctx, args[0])
	if err != nil {
		return err
	}

	engine := decision.NewEngine()
	dec, err := engine.Decide(profile, buildPolicy())
	if err != nil {
		return err
	}

	headline.Printf("Recommendation for %s\n", profile.Path)
	fmt.Printf("  Method:    %s\n", dec.Method)
	fmt.Printf("  Technique: %s\n", dec.Technique)
	fmt.Println("  Rationale:")
	for _, r := range dec.Rationale {
		fmt.Printf("    - %s\n", r)
	}

	warnings, err := engine.ValidateChoice(profile, dec)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		warnClr.Printf("  Warning: %s\n", w)
	}
	if len(warnings) > 0 {
		exitCode = EXIT_WARNING
	}

	logger.Log("INFO", "decision issued", "device", profile.Path,
		"method", string(dec.Method), "technique", string(dec.Technique))
	return nil
}

func runWipe(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	mode, ok := execute.ParseMode(modeStr)
	if !ok {
		return fmt.Errorf("invalid mode %q: expected simulated or real", modeStr)
	}

	ctx, cancel := signalContext()
	defer cancel()

	profile, err := resolveProfile(ctx, args[0])
	if err != nil {
		return err
	}

	engine := decision.NewEngine()
	dec, err := engine.Decide(profile, buildPolicy())
	if err != nil {
		return err
	}
	for _, w := range mustWarnings(engine, profile, dec) {
		warnClr.Printf("Warning: %s\n", w)
	}

	headline.Printf("%s: %s via %s (%s mode)\n", profile.Path, dec.Method, dec.Technique, mode)

	// Preview prompt. The real-mode "YES" challenge is separate and --yes
	// never skips it.
	if !assumeYes {
		fmt.Printf("Proceed with %s on %s? (y/N): ", dec.Technique, profile.Path)
		var response string
		fmt.Scanln(&response)
		if !strings.EqualFold(response, "y") {
			logger.Log("INFO", "operation cancelled at preview", "device", profile.Path)
			return nil
		}
	}

	confirmer := &safety.TerminalConfirmer{In: os.Stdin, Out: os.Stdout}
	simulated := execute.NewSimulatedExecutor(cfg.Wipe.ChunkSize, cfg.Wipe.SecureEraseWindow, cfg.Wipe.MaxSpeedMBps)
	gate := safety.NewGate(cfg, logger)
	dispatcher := execute.NewDispatcher(simulated, execute.NewRealExecutor(), gate, confirmer,
		cfg.Safety.RequireConfirmation, logger)

	result, err := dispatcher.Execute(ctx, profile, dec, mode, printProgress)
	fmt.Println()
	if err != nil {
		return err
	}

	if result.Success {
		okColor.Printf("Sanitization completed (verification: %s)\n", result.VerificationStatus)
	} else {
		errClr.Printf("Sanitization FAILED: %s\n", result.Err)
	}
	for _, d := range result.Details {
		fmt.Printf("  %s\n", d)
	}

	// Every attempt gets a certificate, failed ones included.
	signer, err := certify.LoadOrCreateKeys(cfg.Signing.KeysDir)
	if err != nil {
		return err
	}
	record := certify.NewRecord(profile, dec, result, certify.Operator{Name: operatorName, Title: operatorTitle})
	store := certify.NewStore(cfg)
	if _, err := store.SaveRecord(record); err != nil {
		return err
	}
	signed, err := signer.Sign(record)
	if err != nil {
		return err
	}
	signedPath, err := store.SaveSigned(record, signed)
	if err != nil {
		return err
	}
	if signedPath != "" {
		fmt.Printf("Certificate: %s (key %s)\n", signedPath, signer.Fingerprint())
	}

	if !result.Success {
		exitCode = EXIT_ERROR
	} else if result.VerificationStatus != execute.VerificationPassed {
		exitCode = EXIT_WARNING
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	signed, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read certificate: %w", err)
	}

	keyPath := pubkeyPath
	if keyPath == "" {
		keyPath = cfg.Signing.KeysDir + "/public.pem"
	}
	pubPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}

	ok, diag := certify.Verify(signed, pubPEM)
	if !ok {
		errClr.Printf("INVALID: %s\n", diag)
		exitCode = EXIT_ERROR
		return nil
	}
	if strings.Contains(diag, "warning") {
		warnClr.Println(diag)
		exitCode = EXIT_WARNING
		return nil
	}
	okColor.Println(diag)
	return nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	signer, err := certify.LoadOrCreateKeys(cfg.Signing.KeysDir)
	if err != nil {
		return err
	}
	fmt.Printf("Keys directory:  %s\n", cfg.Signing.KeysDir)
	fmt.Printf("Key fingerprint: %s\n", signer.Fingerprint())
	return nil
}

func mustWarnings(engine *decision.Engine, p device.Profile, dec decision.Decision) []string {
	warnings, err := engine.ValidateChoice(p, dec)
	if err != nil {
		// Decide already enforced applicability; a late error only repeats it.
		return []string{err.Error()}
	}
	return warnings
}

// printProgress renders a single updating progress line.
func printProgress(done, total int64) {
	if total <= 0 {
		return
	}
	pct := float64(done) / float64(total) * 100
	fmt.Printf("\rProgress: %5.1f%% (%d / %d bytes)", pct, done, total)
}
