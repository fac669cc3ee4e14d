package csvdata

import (
	"strings"

	"github.com/jarruego/academyhub-sub000/internal/normalize"
)

// Canonical column names. Every resolver reads rows through these keys only;
// raw header variants are folded into them once at decode time.
const (
	ColDNI            = "dni"
	ColNSS            = "nss"
	ColName           = "name"
	ColSurname1       = "surname1"
	ColSurname2       = "surname2"
	ColEmail          = "email"
	ColPhone          = "phone"
	ColMoodleIDUser   = "moodle_id_user"
	ColCIF            = "cif"
	ColCompanyName    = "company_name"
	ColCenterName     = "center_name"
	ColEmployerNumber = "employer_number"
	ColStartDate      = "start_date"
	ColEndDate        = "end_date"
	ColMoodleIDCourse = "moodle_id_course"
	ColCourseName     = "course_name"
	ColDescription    = "description"
	ColHours          = "hours"
	ColModality       = "modality"
	ColMoodleIDGroup  = "moodle_id_group"
	ColGroupName      = "group_name"
	ColTimeSpent      = "time_spent"
	ColCompletion     = "completion_percentage"
)

// headerAliases folds the header variants seen across the payroll and
// training-provider exports (Spanish and English, mixed casing) into
// canonical column names. Comparison happens on cleaned headers, so only
// lowercase ASCII forms are listed.
var headerAliases = map[string]string{
	"dni":           ColDNI,
	"nif":           ColDNI,
	"documento":     ColDNI,
	"num_documento": ColDNI,

	"nss":                     ColNSS,
	"naf":                     ColNSS,
	"num_seg_social":          ColNSS,
	"numero_seguridad_social": ColNSS,
	"n_afiliacion":            ColNSS,

	"name":   ColName,
	"nombre": ColName,

	"surname1":        ColSurname1,
	"apellido1":       ColSurname1,
	"primer_apellido": ColSurname1,
	"apellidos":       ColSurname1,

	"surname2":         ColSurname2,
	"apellido2":        ColSurname2,
	"segundo_apellido": ColSurname2,

	"email":  ColEmail,
	"e_mail": ColEmail,
	"correo": ColEmail,
	"mail":   ColEmail,

	"phone":    ColPhone,
	"telefono": ColPhone,
	"tfno":     ColPhone,
	"movil":    ColPhone,

	"moodle_id_user": ColMoodleIDUser,
	"id_moodle_user": ColMoodleIDUser,
	"moodle_user_id": ColMoodleIDUser,
	"userid":         ColMoodleIDUser,

	"cif":         ColCIF,
	"cif_empresa": ColCIF,
	"nif_empresa": ColCIF,
	"tax_id":      ColCIF,

	"company_name":   ColCompanyName,
	"empresa":        ColCompanyName,
	"razon_social":   ColCompanyName,
	"nombre_empresa": ColCompanyName,

	"center_name":    ColCenterName,
	"centro":         ColCenterName,
	"nombre_centro":  ColCenterName,
	"centro_trabajo": ColCenterName,

	"employer_number":          ColEmployerNumber,
	"ccc":                      ColEmployerNumber,
	"codigo_cuenta_cotizacion": ColEmployerNumber,
	"num_patronal":             ColEmployerNumber,

	"start_date":   ColStartDate,
	"fecha_inicio": ColStartDate,
	"fecha_alta":   ColStartDate,
	"inicio":       ColStartDate,

	"end_date":   ColEndDate,
	"fecha_fin":  ColEndDate,
	"fecha_baja": ColEndDate,
	"fin":        ColEndDate,

	"moodle_id_course": ColMoodleIDCourse,
	"id_moodle_course": ColMoodleIDCourse,
	"course_id_moodle": ColMoodleIDCourse,
	"idcurso_moodle":   ColMoodleIDCourse,

	"course_name":  ColCourseName,
	"curso":        ColCourseName,
	"nombre_curso": ColCourseName,
	"denominacion": ColCourseName,

	"description":   ColDescription,
	"descripcion":   ColDescription,
	"observaciones": ColDescription,

	"hours":    ColHours,
	"horas":    ColHours,
	"duracion": ColHours,
	"duration": ColHours,

	"modality":  ColModality,
	"modalidad": ColModality,

	"moodle_id_group": ColMoodleIDGroup,
	"id_moodle_group": ColMoodleIDGroup,
	"group_id_moodle": ColMoodleIDGroup,

	"group_name":   ColGroupName,
	"grupo":        ColGroupName,
	"nombre_grupo": ColGroupName,

	"time_spent":      ColTimeSpent,
	"tiempo_conexion": ColTimeSpent,
	"connection_time": ColTimeSpent,

	"completion_percentage": ColCompletion,
	"porcentaje":            ColCompletion,
	"progreso":              ColCompletion,
	"completion":            ColCompletion,
}

// CanonicalHeader cleans a raw header cell and resolves it through the alias
// table. Headers with no alias entry come back cleaned but otherwise
// untouched, so unknown columns survive the round trip.
func CanonicalHeader(raw string) string {
	key := CleanHeader(raw)
	if canon, ok := headerAliases[key]; ok {
		return canon
	}
	return key
}

// CleanHeader normalizes a raw header cell: strips BOM and Excel formula
// wrappers, folds accents and case, and joins words with underscores.
func CleanHeader(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = CleanCell(s)
	s = normalize.StripDiacritics(s)
	s = strings.ToLower(s)

	var b strings.Builder
	lastUnderscore := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// CleanCell trims whitespace and unwraps Excel formula-quoted values (="...").
func CleanCell(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
