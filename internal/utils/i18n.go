package utils

// Console strings for fixed keys. Values may carry fmt verbs; callers format them.

var translations = map[string]map[string]string{
	"en": {
		"login.username":          "Username: ",
		"login.password":          "Password: ",
		"login.failed":            "Invalid username or password.",
		"login.throttled":         "Too many attempts, try again later.",
		"login.welcome":           "Welcome, %s (%s).",
		"menu.title":              "Main menu",
		"menu.choice":             "Choose an option: ",
		"menu.invalid":            "Invalid option.",
		"menu.exit":               "Exit",
		"menu.list":               "List surveys",
		"menu.take":               "Take a survey",
		"menu.mine":               "My responses",
		"menu.report":             "Survey report",
		"menu.moderate":           "Moderate responses",
		"menu.export_csv":         "Export responses (CSV)",
		"menu.export_pdf":         "Export report (PDF)",
		"menu.audit":              "Audit log",
		"menu.close":              "Close a survey",
		"menu.role":               "Switch role",
		"survey.none":             "No surveys available.",
		"survey.pick":             "Survey id: ",
		"survey.quiz":             "questionnaire, %d min, pass %d%%",
		"survey.plain":            "survey",
		"survey.closed":           "Survey %d closed.",
		"take.resume":             "Resuming your previous attempt.",
		"take.time_limit":         "Time limit: %d minutes.",
		"take.expired":            "Time expired. Your answers were submitted.",
		"take.required":           "(required)",
		"take.answer":             "Answer: ",
		"take.bool_hint":          "[true/false]",
		"take.bad_option":         "Choose one of the listed options.",
		"take.bad_bool":           "Answer true or false.",
		"take.need_answer":        "This question is required.",
		"take.incomplete":         "Some required questions are unanswered; your progress is saved.",
		"take.done":               "Thank you, your response was recorded.",
		"result.score":            "Score: %d/%d (%.2f%%)",
		"result.passed":           "Passed",
		"result.failed":           "Not passed",
		"result.hidden":           "Results will be published later.",
		"result.status":           "Status: %s",
		"mine.none":               "You have no responses yet.",
		"moderate.none":           "No pending responses.",
		"moderate.prompt":         "[a]pprove, [r]eject, [s]kip: ",
		"report.header":           "%s: %d responses, %d completed",
		"report.pass_rate":        "Pass rate %.2f%%, average %.2f%%",
		"report.moderation":       "Pending %d, approved %d, rejected %d",
		"export.path":             "Output file: ",
		"export.written":          "Wrote %s.",
		"menu.create":             "Create a survey",
		"menu.create_quiz":        "Create a questionnaire",
		"menu.edit":               "Edit survey details",
		"menu.add_question":       "Add a question",
		"menu.edit_question":      "Edit a question",
		"menu.remove_question":    "Remove a question",
		"menu.roles":              "Set allowed roles",
		"menu.publish":            "Publish a survey",
		"menu.delete":             "Delete a survey",
		"question.pick":           "Question id: ",
		"author.title":            "Title: ",
		"author.description":      "Description: ",
		"author.keep":             "Leave a field blank to keep its current value.",
		"author.closes_at":        "Closes at (YYYY-MM-DD HH:MM UTC, - for never): ",
		"author.time_limit":       "Time limit in minutes: ",
		"author.passing":          "Passing score (0-100): ",
		"author.reveal":           "Show results immediately? [y/n]: ",
		"author.randomize":        "Shuffle question order? [y/n]: ",
		"author.more":             "Add questions now; leave the text blank to finish.",
		"author.question_text":    "Question text: ",
		"author.kind":             "Kind (1 single choice, 2 true/false, 3 short text, 4 long text): ",
		"author.options":          "Options, comma separated: ",
		"author.required":         "Required? [y/n]: ",
		"author.points":           "Points: ",
		"author.correct":          "Correct answer: ",
		"author.available":        "Roles: %s",
		"author.roles":            "Allowed roles, comma separated (blank for everyone): ",
		"author.delete_warning":   "Deleting %q also deletes its %d responses.",
		"author.confirm":          "Continue? [y/n]: ",
		"author.created":          "Survey %d created as a draft.",
		"author.updated":          "Survey %d updated.",
		"author.published":        "Survey %d published.",
		"author.deleted":          "Survey %d deleted.",
		"author.question_added":   "Question %d added.",
		"author.question_updated": "Question %d updated.",
		"author.question_removed": "Question %d removed.",
		"role.pick":               "Role: ",
		"error.prefix":            "Error: %v",
	},
	"es": {
		"login.username":          "Usuario: ",
		"login.password":          "Contraseña: ",
		"login.failed":            "Usuario o contraseña incorrectos.",
		"login.throttled":         "Demasiados intentos, inténtelo más tarde.",
		"login.welcome":           "Bienvenido, %s (%s).",
		"menu.title":              "Menú principal",
		"menu.choice":             "Elija una opción: ",
		"menu.invalid":            "Opción inválida.",
		"menu.exit":               "Salir",
		"menu.list":               "Listar encuestas",
		"menu.take":               "Responder una encuesta",
		"menu.mine":               "Mis respuestas",
		"menu.report":             "Informe de encuesta",
		"menu.moderate":           "Moderar respuestas",
		"menu.export_csv":         "Exportar respuestas (CSV)",
		"menu.export_pdf":         "Exportar informe (PDF)",
		"menu.audit":              "Registro de auditoría",
		"menu.close":              "Cerrar una encuesta",
		"menu.role":               "Cambiar de rol",
		"survey.none":             "No hay encuestas disponibles.",
		"survey.pick":             "Id de la encuesta: ",
		"survey.quiz":             "cuestionario, %d min, aprueba con %d%%",
		"survey.plain":            "encuesta",
		"survey.closed":           "Encuesta %d cerrada.",
		"take.resume":             "Continuando su intento anterior.",
		"take.time_limit":         "Tiempo límite: %d minutos.",
		"take.expired":            "Tiempo agotado. Sus respuestas fueron enviadas.",
		"take.required":           "(obligatoria)",
		"take.answer":             "Respuesta: ",
		"take.bool_hint":          "[true/false]",
		"take.bad_option":         "Elija una de las opciones listadas.",
		"take.bad_bool":           "Responda true o false.",
		"take.need_answer":        "Esta pregunta es obligatoria.",
		"take.incomplete":         "Faltan preguntas obligatorias; su progreso quedó guardado.",
		"take.done":               "Gracias, su respuesta fue registrada.",
		"result.score":            "Puntaje: %d/%d (%.2f%%)",
		"result.passed":           "Aprobado",
		"result.failed":           "No aprobado",
		"result.hidden":           "Los resultados se publicarán más tarde.",
		"result.status":           "Estado: %s",
		"mine.none":               "Todavía no tiene respuestas.",
		"moderate.none":           "No hay respuestas pendientes.",
		"moderate.prompt":         "[a]probar, [r]echazar, [s]altar: ",
		"report.header":           "%s: %d respuestas, %d completas",
		"report.pass_rate":        "Tasa de aprobación %.2f%%, promedio %.2f%%",
		"report.moderation":       "Pendientes %d, aprobadas %d, rechazadas %d",
		"export.path":             "Archivo de salida: ",
		"export.written":          "Se escribió %s.",
		"menu.create":             "Crear una encuesta",
		"menu.create_quiz":        "Crear un cuestionario",
		"menu.edit":               "Editar datos de una encuesta",
		"menu.add_question":       "Agregar una pregunta",
		"menu.edit_question":      "Editar una pregunta",
		"menu.remove_question":    "Eliminar una pregunta",
		"menu.roles":              "Definir roles permitidos",
		"menu.publish":            "Publicar una encuesta",
		"menu.delete":             "Borrar una encuesta",
		"question.pick":           "Id de la pregunta: ",
		"author.title":            "Título: ",
		"author.description":      "Descripción: ",
		"author.keep":             "Deje un campo vacío para conservar su valor actual.",
		"author.closes_at":        "Cierra el (AAAA-MM-DD HH:MM UTC, - para nunca): ",
		"author.time_limit":       "Tiempo límite en minutos: ",
		"author.passing":          "Puntaje para aprobar (0-100): ",
		"author.reveal":           "¿Mostrar resultados de inmediato? [s/n]: ",
		"author.randomize":        "¿Mezclar el orden de las preguntas? [s/n]: ",
		"author.more":             "Agregue preguntas; deje el texto vacío para terminar.",
		"author.question_text":    "Texto de la pregunta: ",
		"author.kind":             "Tipo (1 opción única, 2 verdadero/falso, 3 texto corto, 4 texto largo): ",
		"author.options":          "Opciones, separadas por comas: ",
		"author.required":         "¿Obligatoria? [s/n]: ",
		"author.points":           "Puntos: ",
		"author.correct":          "Respuesta correcta: ",
		"author.available":        "Roles: %s",
		"author.roles":            "Roles permitidos, separados por comas (vacío para todos): ",
		"author.delete_warning":   "Borrar %q también borra sus %d respuestas.",
		"author.confirm":          "¿Continuar? [s/n]: ",
		"author.created":          "Encuesta %d creada como borrador.",
		"author.updated":          "Encuesta %d actualizada.",
		"author.published":        "Encuesta %d publicada.",
		"author.deleted":          "Encuesta %d borrada.",
		"author.question_added":   "Pregunta %d agregada.",
		"author.question_updated": "Pregunta %d actualizada.",
		"author.question_removed": "Pregunta %d eliminada.",
		"role.pick":               "Rol: ",
		"error.prefix":            "Error: %v",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Locales lists the languages T knows.
func Locales() []string { return []string{"en", "es"} }
