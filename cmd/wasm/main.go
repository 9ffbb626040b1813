//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"syscall/js"

	"sapauth/pkg/engine"
	"sapauth/pkg/export"
	"sapauth/pkg/report"
	"sapauth/pkg/source"
)

// NOTE: Each Web Worker loads its own WASM instance. Global state is NOT shared
// across workers. A worker that did not load the workbook receives the current
// snapshot through sapLoadSnapshot() instead.

var (
	globalCache    *source.SnapshotCache
	globalDataset  *source.Dataset
	globalBase     *engine.Snapshot
	globalSnapshot *engine.Snapshot
)

func errorJSON(err error) string {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(out)
}

func resultJSON(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return errorJSON(err)
	}
	return string(out)
}

// loadWorkbook handles the sapLoadWorkbook JS function call.
// args[0] = Uint8Array (XLSX or CSV bytes)
// args[1] = string (file name, optional; names a CSV sheet)
// Returns: JSON with "datasetId", "sheets", "warnings" and "summary".
func loadWorkbook(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorJSON(fmt.Errorf("sapLoadWorkbook requires 1 argument: Uint8Array"))
	}

	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	name := "workbook.xlsx"
	if len(args) > 1 && args[1].Type() == js.TypeString {
		name = args[1].String()
	}

	ds, err := source.Load(name, data, source.Options{Cache: globalCache})
	if err != nil {
		return errorJSON(err)
	}
	globalDataset = ds
	globalBase = ds.Base()
	globalSnapshot = globalBase

	return resultJSON(map[string]interface{}{
		"datasetId": ds.ID,
		"sheets":    ds.Result.Sheets,
		"warnings":  ds.Result.Warnings,
		"summary":   report.Summarize(globalSnapshot),
	})
}

// derive handles the sapDerive JS function call.
// args[0] = string (window JSON: {"preset": "..."} or {"from": "...", "to": "..."}; optional)
// Returns: JSON with the users, roles (with utilization) and tcodes of the window.
func derive(this js.Value, args []js.Value) interface{} {
	if globalBase == nil {
		return errorJSON(fmt.Errorf("no workbook loaded: call sapLoadWorkbook() first"))
	}

	var spec engine.WindowSpec
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		if err := json.Unmarshal([]byte(args[0].String()), &spec); err != nil {
			return errorJSON(fmt.Errorf("invalid window JSON: %w", err))
		}
	}
	w, err := spec.Resolve(globalBase.Now)
	if err != nil {
		return errorJSON(err)
	}

	if globalDataset != nil {
		globalSnapshot = globalDataset.Snapshot(w)
	} else {
		globalSnapshot = globalBase.Rewindow(w)
	}

	return resultJSON(map[string]interface{}{
		"window": globalSnapshot.Window,
		"users":  globalSnapshot.Users,
		"roles":  report.RoleTable.Records(globalSnapshot.Roles),
		"tCodes": report.WindowedTCodes(globalSnapshot),
	})
}

// roleDetail handles the sapRoleDetail JS function call.
// args[0] = string (role name)
func roleDetail(this js.Value, args []js.Value) interface{} {
	if globalSnapshot == nil {
		return errorJSON(fmt.Errorf("no workbook loaded: call sapLoadWorkbook() first"))
	}
	if len(args) < 1 {
		return errorJSON(fmt.Errorf("sapRoleDetail requires 1 argument: role name"))
	}

	detail, ok := globalSnapshot.RoleDetail(args[0].String())
	if !ok {
		return resultJSON(map[string]interface{}{
			"error":       fmt.Sprintf("role %q not found", args[0].String()),
			"suggestions": globalSnapshot.SuggestRoles(args[0].String(), 3),
		})
	}
	return resultJSON(detail)
}

// summary handles the sapSummary JS function call for the current snapshot.
func summary(this js.Value, args []js.Value) interface{} {
	s := globalSnapshot
	if s == nil {
		return errorJSON(fmt.Errorf("no workbook loaded: call sapLoadWorkbook() first"))
	}
	return resultJSON(map[string]interface{}{
		"summary":            report.Summarize(s),
		"usersByStatus":      report.UsersByStatus(s.Users),
		"usersByGroup":       report.UsersByGroup(s.Users),
		"rolesByTag":         report.RolesByTag(s.Roles),
		"roleUtilization":    report.RoleUtilizations(s.Roles),
		"roleUnused":         report.RoleUnusedShares(s.Roles),
		"topTCodes":          report.TopTCodes(s, 10),
		"execByGroup":        report.ExecutionsByGroup(s),
		"uniqueCodesByGroup": report.UniqueCodesByGroup(s),
		"heatmap":            report.ExecutionHeatmap(s),
		"unusedRoles":        report.UnusedRoleTable.Records(report.Unused(s.Roles)),
		"integrity":          engine.CheckIntegrity(s),
	})
}

// exportUnused handles the sapExportUnused JS function call.
// Returns: Uint8Array holding an XLSX workbook with the "Unused Roles" sheet.
func exportUnused(this js.Value, args []js.Value) interface{} {
	if globalSnapshot == nil {
		return errorJSON(fmt.Errorf("no workbook loaded: call sapLoadWorkbook() first"))
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, globalSnapshot, export.KindUnused); err != nil {
		return errorJSON(err)
	}
	out := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(out, buf.Bytes())
	return out
}

// saveSnapshot handles the sapSaveSnapshot JS function call.
// Returns: the current snapshot serialized for broadcast to other workers.
func saveSnapshot(this js.Value, args []js.Value) interface{} {
	if globalSnapshot == nil {
		return errorJSON(fmt.Errorf("no workbook loaded: call sapLoadWorkbook() first"))
	}
	data, err := engine.SerializeSnapshot(globalSnapshot)
	if err != nil {
		return errorJSON(err)
	}
	return string(data)
}

// loadSnapshot handles the sapLoadSnapshot JS function call.
// args[0] = string (serialized snapshot from sapSaveSnapshot)
// Rebuilds the snapshot and its indices in this WASM instance.
func loadSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorJSON(fmt.Errorf("sapLoadSnapshot requires 1 argument: serialized snapshot JSON"))
	}
	snap, err := engine.DeserializeSnapshot([]byte(args[0].String()))
	if err != nil {
		return errorJSON(err)
	}
	globalDataset = nil
	globalSnapshot = snap
	globalBase = snap.Rewindow(nil)
	return `{"ok": true}`
}

func main() {
	cache, err := source.NewSnapshotCache(0)
	if err != nil {
		panic(err)
	}
	globalCache = cache

	js.Global().Set("sapLoadWorkbook", js.FuncOf(loadWorkbook))
	js.Global().Set("sapDerive", js.FuncOf(derive))
	js.Global().Set("sapRoleDetail", js.FuncOf(roleDetail))
	js.Global().Set("sapSummary", js.FuncOf(summary))
	js.Global().Set("sapExportUnused", js.FuncOf(exportUnused))
	js.Global().Set("sapSaveSnapshot", js.FuncOf(saveSnapshot))
	js.Global().Set("sapLoadSnapshot", js.FuncOf(loadSnapshot))

	// Block forever so the WASM module stays alive.
	select {}
}
