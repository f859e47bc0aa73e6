package service

import (
	"context"
	"strings"
	"unicode"

	"foodloop/internal/foodloop/models"
)

const DefaultLanguage = "en"

// Responder produces the assistant's answer. The default is FAQResponder;
// an LLM-backed responder can be plugged in instead.
type Responder interface {
	Reply(ctx context.Context, language string, history []models.ChatTurn, message string) (string, error)
}

type ChatRequest struct {
	Message  string            `json:"message"`
	Language string            `json:"language"`
	History  []models.ChatTurn `json:"history"`
}

type ChatResponse struct {
	Reply    string            `json:"reply"`
	Language string            `json:"language"`
	History  []models.ChatTurn `json:"history"`
}

// ============================================================
// Chat Service
// ============================================================

type ChatService struct {
	responder  Responder
	maxHistory int
}

func NewChatService(responder Responder, maxHistory int) *ChatService {
	if responder == nil {
		responder = FAQResponder{}
	}
	maxHistory = max(maxHistory, 0)
	return &ChatService{responder: responder, maxHistory: maxHistory}
}

// Handle отвечает на сообщение. "/lang xx" переключает язык; история
// обрезается до последних maxHistory реплик.
func (s *ChatService) Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, invalid("message required")
	}
	lang := NormalizeLanguage(req.Language)
	history := truncateHistory(req.History, s.maxHistory)

	var reply string
	if code, ok := langCommand(msg); ok {
		lang = NormalizeLanguage(code)
		reply = phrase(lang, "switched")
	} else {
		var err error
		reply, err = s.responder.Reply(ctx, lang, history, msg)
		if err != nil {
			return nil, err
		}
	}

	history = append(history,
		models.ChatTurn{Role: "user", Content: msg},
		models.ChatTurn{Role: "assistant", Content: reply},
	)
	return &ChatResponse{
		Reply:    reply,
		Language: lang,
		History:  truncateHistory(history, s.maxHistory),
	}, nil
}

// langCommand разбирает "/lang" и "/lang xx". "/language" командой не считается.
func langCommand(msg string) (string, bool) {
	fields := strings.Fields(msg)
	if len(fields) == 0 || fields[0] != "/lang" {
		return "", false
	}
	if len(fields) == 1 {
		return "", true
	}
	return fields[1], true
}

func truncateHistory(history []models.ChatTurn, limit int) []models.ChatTurn {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]models.ChatTurn, len(history))
	copy(out, history)
	return out
}

// NormalizeLanguage maps a language tag ("es-MX", "FR") to a supported code.
func NormalizeLanguage(tag string) string {
	code := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := phrases[code]; ok {
		return code
	}
	return DefaultLanguage
}

// ============================================================
// FAQ Responder
// ============================================================

// FAQResponder answers by keyword intent.
type FAQResponder struct{}

var intents = []struct {
	name     string
	keywords []string
}{
	{"donate", []string{"donat", "give", "surplus", "leftover", "dona", "donner", "don "}},
	{"receive", []string{"receive", " ngo ", "need food", "recib", "necesit", "recevoir", "besoin"}},
	{"volunteer", []string{"volunteer", "driver", "deliver", "voluntar", "conduc", "bénévole", "benevole", "chauffeur"}},
	{"track", []string{"track", "status", "where is", "estado", "seguimiento", "suivi", "statut"}},
	{"contact", []string{"contact", "support", "email", "contacto", "ayuda", "aide"}},
	{"greeting", []string{"hello", " hi ", " hey ", "hola", "bonjour", "salut"}},
}

func (FAQResponder) Reply(_ context.Context, language string, _ []models.ChatTurn, message string) (string, error) {
	text := " " + strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, strings.ToLower(message)) + " "
	for _, in := range intents {
		for _, kw := range in.keywords {
			if strings.Contains(text, kw) {
				return phrase(language, in.name), nil
			}
		}
	}
	return phrase(language, "fallback"), nil
}

var phrases = map[string]map[string]string{
	"en": {
		"greeting":  "Hi! I'm the FoodLoop assistant. Ask me about donating, receiving food or volunteering.",
		"donate":    "To donate, sign up as a donor and create a donation from your dashboard. An admin approves it before it is matched.",
		"receive":   "NGOs can register as receivers and claim approved donations from the receiver dashboard.",
		"volunteer": "Register as a driver to pick up approved donations and deliver them to receivers.",
		"track":     "Each donation moves through pending, approved, assigned, picked up and delivered. Check its status on your dashboard.",
		"contact":   "You can reach the team through the contact form; an admin will reply by email.",
		"fallback":  "Sorry, I didn't get that. Try asking about donating, receiving or volunteering.",
		"switched":  "Language set to English.",
	},
	"es": {
		"greeting":  "¡Hola! Soy el asistente de FoodLoop. Pregúntame sobre donar, recibir comida o ser voluntario.",
		"donate":    "Para donar, regístrate como donante y crea una donación desde tu panel. Un administrador la aprueba antes de asignarla.",
		"receive":   "Las ONG pueden registrarse como receptoras y reclamar donaciones aprobadas desde su panel.",
		"volunteer": "Regístrate como conductor para recoger donaciones aprobadas y entregarlas a los receptores.",
		"track":     "Cada donación pasa por pendiente, aprobada, asignada, recogida y entregada. Consulta su estado en tu panel.",
		"contact":   "Puedes escribir al equipo con el formulario de contacto; un administrador responderá por correo.",
		"fallback":  "Perdón, no entendí. Pregunta sobre donar, recibir o ser voluntario.",
		"switched":  "Idioma cambiado a español.",
	},
	"fr": {
		"greeting":  "Bonjour ! Je suis l'assistant FoodLoop. Posez-moi vos questions sur les dons, la réception ou le bénévolat.",
		"donate":    "Pour donner, inscrivez-vous comme donateur et créez un don depuis votre tableau de bord. Un administrateur le valide.",
		"receive":   "Les associations peuvent s'inscrire comme bénéficiaires et réserver les dons validés.",
		"volunteer": "Inscrivez-vous comme chauffeur pour collecter les dons validés et les livrer.",
		"track":     "Chaque don passe par en attente, validé, attribué, collecté et livré. Consultez son statut sur votre tableau de bord.",
		"contact":   "Contactez l'équipe via le formulaire de contact ; un administrateur vous répondra par e-mail.",
		"fallback":  "Désolé, je n'ai pas compris. Essayez une question sur les dons, la réception ou le bénévolat.",
		"switched":  "Langue réglée sur le français.",
	},
}

func phrase(language, key string) string {
	if p, ok := phrases[language][key]; ok {
		return p
	}
	return phrases[DefaultLanguage][key]
}
