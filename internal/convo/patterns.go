package convo

import (
	"regexp"
	"strings"
)

// matcher reports whether a normalized transcript triggers a command. The
// returned slice follows regexp semantics: m[0] is the whole match, capture
// groups follow. A nil return means no match.
type matcher func(normalized string) []string

func exact(words ...string) matcher {
	return func(normalized string) []string {
		for _, w := range words {
			if normalized == w {
				return []string{normalized}
			}
		}
		return nil
	}
}

func pattern(expr string) matcher {
	re := regexp.MustCompile(expr)
	return re.FindStringSubmatch
}

func prefix(p string) matcher {
	return func(normalized string) []string {
		if strings.HasPrefix(normalized, p) {
			return []string{normalized}
		}
		return nil
	}
}

// wakeWordAlone matches the bare wake phrase regardless of internal
// whitespace: "eliloop", "eli loop" and "el hilo" all count. The specific
// Spanish phrases are user-facing contracts; keep them intact.
func wakeWordAlone(normalized string) []string {
	collapsed := strings.ReplaceAll(normalized, " ", "")
	if collapsed == "eliloop" || normalized == "el hilo" {
		return []string{normalized}
	}
	return nil
}

var (
	wakeWithName = []matcher{
		pattern(`^eli\s*loop\s+(.+)$`),
		pattern(`^eliloop\s+(.+)$`),
		pattern(`^el hilo\s+(.+)$`),
	}

	plusOne       = exact("mas uno", "k")
	plusTwo       = exact("mas dos")
	setRowK       = pattern(`^k(\d+)$`)
	goBackTo      = pattern(`^volver a (\d+)$`)
	notifyEvery   = pattern(`^avisa cada (\d+)$`)
	removeNotify  = exact("quita el aviso", "quitar aviso", "sin aviso")
	whereAmI      = prefix("por donde voy")
	leaveTracking = exact("lo dejo", "me voy")

	repeatNumber  = pattern(`^(\d+)$`)
	repeatDecline = exact("no", "nada", "ninguno", "ninguna")
)

// matchWakeWithName tries the wake-phrase-plus-name forms in order and
// returns the captured project name with inner whitespace collapsed.
func matchWakeWithName(normalized string) (string, bool) {
	for _, m := range wakeWithName {
		if got := m(normalized); got != nil {
			name := strings.Join(strings.Fields(got[1]), " ")
			if name != "" {
				return name, true
			}
		}
	}
	return "", false
}
