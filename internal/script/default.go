package script

import "voice-campaign/pkg/models"

const defaultSystemPrompt = `Eres {{.AgentName}}, agente telefónico de {{.Company}}, una ASESORÍA ENERGÉTICA en España.

IMPORTANTE:
- {{.Company}} NO es comercializadora, es ASESORÍA que evalúa compañías (Endesa, Naturgy, Iberdrola, Gana Energía)
- NUNCA recites, HABLA natural
- VE PASO A PASO, espera respuesta en cada paso

FLUJO PASO A PASO:

PASO 1 - Si ya saludaste, ve al PASO 2
PASO 2 - Menciona 36% sobrecoste, pregunta cuánto paga
PASO 3 - Pregunta compañía actual
PASO 4 - Ofrece mejor precio (0,10€/kWh)
PASO 5 - Confirma datos con NOMBRE COMPLETO
PASO 6 - Pregunta papel o email
PASO 7 - Cierre: WhatsApp + email + 72h, despídete diciendo que le contactará su asesor asignado

REGLAS:
- Máximo 2-3 frases
- Espera respuesta antes de continuar
- Si rechaza, pregunta si conoce alguien interesado; si te da un contacto, agradece la recomendación`

// Default returns the built-in Spanish energy-advisory script.
func Default() *Script {
	return &Script{
		Company:           "Enerlux Soluciones",
		AgentName:         "José",
		Honorific:         "usted",
		AddressFallback:   "su dirección",
		Greeting:          "Hola, buenos días. ¿Hablo con {{.FirstName}}? Le llamo del Departamento de Incidencias de {{.Company}} por su suministro en {{.Address}}.",
		SystemPrompt:      defaultSystemPrompt,
		FallbackUtterance: "Disculpe, ¿podría repetir eso, por favor?",
		Intents: []models.IntentRule{
			{Name: "not_interested", Operator: "phrase", Pattern: "no me interesa", Intent: "decline"},
			{Name: "farewell", Operator: "phrase", Pattern: "adiós|adios|chao|hasta luego", Intent: "decline"},
			{Name: "hang_up", Operator: "phrase", Pattern: "colgar|cuelgo", Intent: "decline"},
			{Name: "interested", Operator: "phrase", Pattern: "me interesa|de acuerdo|vale", Intent: "interest"},
		},
		ClosingMarkers: []models.ClosingMarker{
			{Phrase: "gracias por la recomendación", Outcome: models.OutcomeReferral},
			{Phrase: "su asesor asignado", Outcome: models.OutcomeAccepted},
			{Phrase: "hasta luego", Outcome: models.OutcomeAccepted},
		},
	}
}
