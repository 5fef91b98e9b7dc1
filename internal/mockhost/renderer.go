package mockhost

import (
	"sort"
	"strings"

	"greenscreen/internal/catalog"
	"greenscreen/internal/tn5250"
)

// errorRow is where host messages appear, the classic message line.
const (
	errorRow   = 24
	errorCol   = 2
	errorWidth = 78
)

// RenderScreen turns a catalog screen plus a data map into one wire-ready
// record: clear the unit, lay down static text, emit every field as
// SF + value + a terminating protected SF, surface errorMsg on the message
// line and park the cursor in the first input field.
func RenderScreen(def *catalog.Screen, data map[string]string, errorMsg string) ([]byte, error) {
	w := tn5250.NewWriter().
		ClearUnit().
		WriteToDisplay(tn5250.CC1LockKeyboard, 0x00)

	statics := append([]catalog.StaticText(nil), def.StaticText...)
	sort.SliceStable(statics, func(i, j int) bool {
		if statics[i].Row != statics[j].Row {
			return statics[i].Row < statics[j].Row
		}
		return statics[i].Col < statics[j].Col
	})
	for _, st := range statics {
		w.SetBufferAddress(st.Row, st.Col).WriteText(st.Text)
	}

	fields := append([]catalog.Field(nil), def.Fields...)
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Row != fields[j].Row {
			return fields[i].Row < fields[j].Row
		}
		return fields[i].Col < fields[j].Col
	})
	for _, f := range fields {
		value := data[f.Name]
		if value == "" {
			value = f.DefaultValue
		}
		w.SetBufferAddress(f.Row, f.Col)
		switch {
		case !f.IsInput():
			w.StartProtectedField()
		case f.IsHidden():
			w.StartHiddenField()
			value = "" // never echo hidden contents back
		default:
			w.StartInputField()
		}
		w.WriteFieldValue(value, f.Length)
		// A protected attribute byte closes the field so the client can
		// derive its length.
		w.StartProtectedField()
	}

	if errorMsg != "" {
		if len(errorMsg) > errorWidth {
			errorMsg = errorMsg[:errorWidth]
		}
		w.SetBufferAddress(errorRow, errorCol).WriteText(errorMsg)
	}

	if first := firstInputField(def); first != nil {
		w.SetBufferAddress(first.Row, first.Col+1)
	} else {
		w.SetBufferAddress(1, 1)
	}
	w.InsertCursor()

	return w.Build(tn5250.OpcodePutGet)
}

func firstInputField(def *catalog.Screen) *catalog.Field {
	inputs := def.InputFields()
	if len(inputs) == 0 {
		return nil
	}
	return &inputs[0]
}

// ExtractFields maps the modified fields of an input record back to the
// catalog names of the screen they were typed on. A modified field matches
// an input-typed catalog field when it sits on the same row at either the
// attribute column or the first data column; anything else is dropped.
func ExtractFields(def *catalog.Screen, in *tn5250.InputRecord) map[string]string {
	out := map[string]string{}
	for _, mod := range in.Fields {
		for _, f := range def.Fields {
			if !f.IsInput() || mod.Row != f.Row {
				continue
			}
			if mod.Col == f.Col || mod.Col == f.Col+1 {
				out[f.Name] = strings.TrimSpace(mod.Value)
				break
			}
		}
	}
	return out
}
