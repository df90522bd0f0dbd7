package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/raidgod/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Query the RAID inventory database",
	Long: `Query the persistent inventory database.

The inventory is updated by 'raidgod inspect' and after every successful
create, delete, clear or spares command. It keeps the last known state of
every drive and virtual drive, their state history and alerts.`,
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known drives",
	RunE:  runInventoryList,
}

var inventoryEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent drive events",
	RunE:  runInventoryEvents,
}

var inventorySnapshotsCmd = &cobra.Command{
	Use:   "snapshots [id]",
	Short: "List recorded snapshots, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInventorySnapshots,
}

var inventoryAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show and acknowledge alerts",
	RunE:  runInventoryAlerts,
}

func init() {
	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryEventsCmd)
	inventoryCmd.AddCommand(inventorySnapshotsCmd)
	inventoryCmd.AddCommand(inventoryAlertsCmd)

	inventoryListCmd.Flags().Bool("json", false, "Output as JSON")
	inventoryListCmd.Flags().String("host", "", "Only drives of this host")
	inventoryListCmd.Flags().Bool("logical", false, "List virtual drives instead")

	inventoryEventsCmd.Flags().Bool("json", false, "Output as JSON")
	inventoryEventsCmd.Flags().Int("limit", 50, "Maximum number of events to show")

	inventorySnapshotsCmd.Flags().Bool("json", false, "Output as JSON")
	inventorySnapshotsCmd.Flags().Int("limit", 20, "Maximum number of snapshots to show")
	inventorySnapshotsCmd.Flags().String("host", "", "Only snapshots of this host")

	inventoryAlertsCmd.Flags().Bool("json", false, "Output as JSON")
	inventoryAlertsCmd.Flags().Bool("all", false, "Include acknowledged alerts")
	inventoryAlertsCmd.Flags().Int64("ack", 0, "Acknowledge alert by ID")

	rootCmd.AddCommand(inventoryCmd)
}

func openStore() (*inventory.Store, error) {
	store, err := inventory.Open(cfg.Inventory.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening inventory: %w", err)
	}
	return store, nil
}

func runInventoryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	host, _ := cmd.Flags().GetString("host")

	if logical, _ := cmd.Flags().GetBool("logical"); logical {
		lds, err := store.ListLogicalDrives(ctx, host)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, lds)
		}
		fmt.Printf("%-16s %-4s %-4s %-4s %-7s %-10s %-11s %s\n", "HOST", "CTRL", "VD", "DG", "LEVEL", "SIZE", "STATUS", "NAME")
		fmt.Println(strings.Repeat("-", 75))
		for _, ld := range lds {
			fmt.Printf("%-16s %-4d %-4d %-4s RAID%-3d %-10s %-11s %s\n",
				truncate(ld.HostID, 16), ld.ControllerID, ld.VirtualDrive, orDash(ld.DiskGroup),
				ld.Level, size(ld.SizeBytes), ld.Status, orDash(ld.Name))
		}
		return nil
	}

	drives, err := store.ListDrives(ctx, host)
	if err != nil {
		return err
	}
	if len(drives) == 0 {
		fmt.Println("No drives in inventory. Run 'raidgod inspect' to populate.")
		return nil
	}
	if wantJSON(cmd) {
		return printJSON(os.Stdout, drives)
	}

	fmt.Printf("%-16s %-4s %-8s %-11s %-10s %-10s %-4s %s\n", "HOST", "CTRL", "ADDRESS", "STATE", "ROLE", "SIZE", "DG", "MODEL")
	fmt.Println(strings.Repeat("-", 85))
	for _, d := range drives {
		fmt.Printf("%-16s %-4d %-8s %-11s %-10s %-10s %-4s %s\n",
			truncate(d.HostID, 16), d.ControllerID, d.Address, strings.ToUpper(d.CurrentState),
			d.Role, size(d.SizeBytes), orDash(d.DiskGroup), truncate(orDash(d.Model), 22))
	}

	total, active, missing, failed, err := store.DriveCount(ctx)
	if err != nil {
		return err
	}
	fmt.Println(strings.Repeat("-", 85))
	fmt.Printf("Total: %d | Active: %d | Missing: %d | Failed: %d\n", total, active, missing, failed)
	return nil
}

func runInventoryEvents(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	events, err := store.RecentEvents(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(os.Stdout, events)
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	fmt.Printf("%-20s %-4s %-8s %-13s %s\n", "TIME", "CTRL", "ADDRESS", "EVENT", "TRANSITION")
	fmt.Println(strings.Repeat("-", 70))
	for _, e := range events {
		transition := e.NewState
		if e.OldState != "" {
			transition = e.OldState + " -> " + e.NewState
		}
		fmt.Printf("%-20s %-4d %-8s %-13s %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.ControllerID, e.Address, e.EventType, transition)
	}
	return nil
}

func runInventorySnapshots(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		adapters, err := store.SnapshotAdapters(ctx, args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(os.Stdout, adapters)
		}
		printAdapters(os.Stdout, adapters)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	host, _ := cmd.Flags().GetString("host")
	snaps, err := store.Snapshots(ctx, host, limit)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(os.Stdout, snaps)
	}

	fmt.Printf("%-36s %-20s %-16s %-10s %s\n", "ID", "TIME", "HOST", "REASON", "ADAPTERS")
	fmt.Println(strings.Repeat("-", 95))
	for _, s := range snaps {
		fmt.Printf("%-36s %-20s %-16s %-10s %d\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), truncate(s.HostID, 16), s.Reason, s.Adapters)
	}
	return nil
}

func runInventoryAlerts(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if id, _ := cmd.Flags().GetInt64("ack"); id > 0 {
		if err := store.AcknowledgeAlert(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Acknowledged alert %d\n", id)
		return nil
	}

	all, _ := cmd.Flags().GetBool("all")
	alerts, err := store.Alerts(ctx, !all, 0)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(os.Stdout, alerts)
	}
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	for _, a := range alerts {
		ack := ""
		if a.Acknowledged {
			ack = " (acked)"
		}
		fmt.Printf("[%d] %s %-8s %-15s %s%s\n",
			a.ID, a.Timestamp.Local().Format("2006-01-02 15:04:05"), strings.ToUpper(a.Severity), a.Category, a.Message, ack)
	}
	return nil
}
