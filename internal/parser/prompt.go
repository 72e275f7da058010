package parser

// SMVSheetPrompt is the extraction prompt for Peru's military-service registry
// sheets. The field keys match the canonical record exactly and the repair
// hints (0/6 first cell, trailing 4 read as A) match the normalizer rules.
const SMVSheetPrompt = `
DEVUELVE EXCLUSIVAMENTE UN ÚNICO OBJETO JSON VÁLIDO (no listas, sin texto extra).
Procesa solo el documento de esta solicitud.

Eres experto en Hojas de Registro del Servicio Militar del Perú (SMV).
Extrae SOLO lo visible y aplica corrección prudente de OCR.

CAMPOS A ENTREGAR (clave exacta):
{
  "dni": "...",
  "lm": "...",
  "or": "...",
  "clase": "...",
  "libro": "...",
  "folio": "...",
  "apellidos": "...",
  "nombres": "...",
  "fecha_nacimiento": "...",
  "presto_servicio": "SI|NO",

  "gran_unidad": null,
  "unidad_alta": null,
  "unidad_baja": null,
  "fecha_alta": null,
  "fecha_baja": null,
  "grado": null,
  "motivo_baja": null
}

REGLAS:
- dni: número junto a “DNI” / “N° DNI” (11 dígitos). Si <11 dígitos, anteponer ceros.
  Si no aparece claramente, devolver null.
- "lm": "6-8 dígitos cerca de LM, LSM, LIBRETA MILITAR o N° OR",
- or: “DDD[L]” (tres dígitos + una letra). Si la última casilla parece “4”, interprétala como “A”.
  Si dudas entre 0 y 6 en la primera casilla, prioriza 0 (055A sobre 655A).
- clase: **CUATRO DÍGITOS exactamente** tal como aparece en el documento (00–99).
  **No convertir a año ni inferir desde la fecha de nacimiento.**
- libro, folio: devolver lo indicado (respetar ceros a la izquierda).
- apellidos / nombres: MAYÚSCULAS, espacios simples, sin inventar; en apellidos concatena paterno + materno.
- fecha_nacimiento: “DD/MM/AAAA”. Mapea meses: ENE=01, FEB=02, MAR=03, ABR=04, MAY=05, JUN=06,
  JUL=07, AGO=08, SET=09, OCT=10, NOV=11, DIC=12.
- presto_servicio: “SI” si existe alguno entre {grado, fecha_alta, unidad_alta/baja, motivo_baja}; si no, “NO”.
- SI "presto_servicio" == "SI" → incluir:
  "gran_unidad", "unidad_alta", "unidad_baja", "fecha_alta", "fecha_baja", "grado", "motivo_baja"
- Si la imagen muestra dos páginas, devuelve SOLO la hoja principal completa.

Responde SOLO con el objeto JSON.
`
