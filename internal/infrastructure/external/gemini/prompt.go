package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// systemInstruction states the grading conventions of the archive.
const systemInstruction = `Sos un asistente que mantiene "Fichas de Trayectoria Estudiantil" en formato JSON.
Tu tarea es aplicar el pedido del usuario sobre la ficha y devolverla actualizada.

NOTAS DE CADA MATERIA:
- c1: nota del primer cuatrimestre.
- c2: nota del segundo cuatrimestre.
- rec: recuperatorio.

REGLAS:
1. "E/C" (En Curso) marca una materia pendiente. Usalo cuando el usuario diga que la adeuda, la está cursando o la está rindiendo.
2. "Nota final" o "nota de área" corresponde a la clave 'notaArea'.
3. 'closure.approved' es un texto:
   - "SI" si el usuario indica que aprobó;
   - "E/C" si sigue cursando o está pendiente;
   - "" si no hay información.
4. Devolvé SIEMPRE la ficha completa del estudiante.
5. No agregues texto fuera del JSON.`

// buildPrompt renders the user turn. A nil current student is sent as {}.
func buildPrompt(instruction string, current *trajectory.Student, schema *trajectory.Schema) (string, error) {
	studentJSON := []byte("{}")
	if current != nil {
		var err error
		if studentJSON, err = json.Marshal(current); err != nil {
			return "", fmt.Errorf("marshal current student: %w", err)
		}
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ficha actual del estudiante: %s\n", studentJSON)
	fmt.Fprintf(&b, "Pedido del usuario: %q\n", instruction)
	fmt.Fprintf(&b, "Materias válidas por año: %s\n\n", schemaJSON)
	b.WriteString("Actualizá la ficha según las reglas. Si una materia no tiene notas, creá c1, c2 y rec según haga falta. ")
	b.WriteString(`Para materias pendientes preferí "E/C".`)
	return b.String(), nil
}

// extractDocument strips an optional markdown code fence around the answer.
func extractDocument(text string) []byte {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			// drop the language tag, e.g. ```json
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return []byte(strings.TrimSpace(text))
}
