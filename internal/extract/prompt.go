// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

// structuringInstruction is the fixed schema sent to the structuring
// service. It enumerates every field the pipeline consumes; the response
// must be a single JSON object and nothing else.
const structuringInstruction = `You structure Brazilian fiscal documents.
Given the raw text of a scanned document, respond with ONLY a JSON object
using exactly these keys:

{
  "document_type": "NFE" | "NFSE" | "NFCE" | "CTE",
  "total_value": <number, document total in BRL>,
  "operation_type": "<operation nature, e.g. VENDA>",
  "state": "<two-letter state code, e.g. SP>",
  "municipality": "<municipality name>",
  "issue_date": "<YYYY-MM-DD if present>",
  "tax_info": {
    "serviceCode": "<municipal service code if NFSE>",
    "ipiCategory": "<IPI category if stated>",
    "regime": "<tax regime if stated, e.g. Simples Nacional>"
  }
}

Omit tax_info keys that do not appear in the document. Do not invent
values. No markdown, no commentary.`
