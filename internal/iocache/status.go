package iocache

import (
	"fmt"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// PrintStoreStatus prints persisted store status information.
func PrintStoreStatus(label string, status schema.StoreStatus) {
	fmt.Printf("%s Backend: %s\n", label, status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Table: %s\n", status.Table)
	fmt.Printf("Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		fmt.Printf("Last Entry: %s\n", status.LastEntryTime.Format(contract.DateTimeFormat))
		fmt.Printf("Oldest Entry: %s\n", status.OldestEntryTime.Format(contract.DateTimeFormat))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintMemoryStatus prints memory tier status information.
func PrintMemoryStatus(status schema.MemoryStatus) {
	fmt.Printf("Memory Entries: %d\n", status.Entries)
	fmt.Printf("Memory TTL: %s\n", status.TTL)
}
